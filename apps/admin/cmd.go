package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	ut "github.com/go-playground/universal-translator"
	"golang.org/x/term"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/setup"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/entitystore"
	"github.com/trezcool/shule/storage"
)

var (
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) } // mockable
	openStoreFunc  = storage.NewStore                                          // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type commandLine struct {
	conf       *core.Config
	store      *entitystore.Store
	staffSvc   *staff.Service
	setupSvc   *setup.Service
	translator ut.Translator

	in  io.Reader
	out io.Writer
}

func newCommandLine(conf *core.Config, store *entitystore.Store, in io.Reader, out io.Writer) *commandLine {
	return &commandLine{conf: conf, store: store, in: in, out: out}
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  createdb                                     - create the postgres database named in storage.dsn\n")
	cli.printf("  migrate COMMAND [ARGS]                       - run a goose migration command (postgres)\n")
	cli.printf("  count [-collection NAME]                     - count records per collection\n")
	cli.printf("  export -format json|yaml [-collection NAME] [-o FILE] - dump collections\n")
	cli.printf("  copy -to BACKEND [-dir DIR] [-dsn DSN] [-redis ADDR] - copy every collection to another backend\n")
	cli.printf("  purge -collection NAME [-yes]                - delete every record of a collection\n")
	cli.printf("  seed                                         - create the default classes and subjects\n")
	cli.printf("  addstaff -name NAME -email EMAIL [-admin]    - register a staff member\n")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	countCmd := flag.NewFlagSet("count", flag.ContinueOnError)
	countColl := countCmd.String("collection", "", "Only count this collection.")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportFormat := exportCmd.String("format", "json", "Output format: json or yaml.")
	exportColl := exportCmd.String("collection", "", "Only export this collection.")
	exportOut := exportCmd.String("o", "", "Output file (stdout when empty).")

	copyCmd := flag.NewFlagSet("copy", flag.ContinueOnError)
	copyTo := copyCmd.String("to", "", "Target backend: "+fmt.Sprint(storage.Backends))
	copyDir := copyCmd.String("dir", cli.conf.Storage.DataDir, "Target data directory (json, sqlite).")
	copyDSN := copyCmd.String("dsn", "", "Target DSN (postgres).")
	copyRedis := copyCmd.String("redis", cli.conf.Storage.RedisAddr, "Target address (redis).")

	purgeCmd := flag.NewFlagSet("purge", flag.ContinueOnError)
	purgeColl := purgeCmd.String("collection", "", "The collection to empty.")
	purgeYes := purgeCmd.Bool("yes", false, "Do not ask for confirmation.")

	addStaffCmd := flag.NewFlagSet("addstaff", flag.ContinueOnError)
	addStaffName := addStaffCmd.String("name", "", "The member's full name.")
	addStaffEmail := addStaffCmd.String("email", "", "The member's email.")
	addStaffAdmin := addStaffCmd.Bool("admin", false, "Grant every role.")

	for _, fs := range []*flag.FlagSet{countCmd, exportCmd, copyCmd, purgeCmd, addStaffCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "createdb":
		return cli.createDB()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "count":
		if err := countCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.count(ctx, *countColl)
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.export(ctx, *exportFormat, *exportColl, *exportOut)
	case "copy":
		if err := copyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *copyTo == "" {
			copyCmd.Usage()
			return errHelp
		}
		target := core.StorageConfig{
			Backend:   *copyTo,
			DataDir:   *copyDir,
			DSN:       *copyDSN,
			RedisAddr: *copyRedis,
			IDs:       cli.conf.Storage.IDs,
		}
		return cli.copy(ctx, target)
	case "purge":
		if err := purgeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *purgeColl == "" {
			purgeCmd.Usage()
			return errHelp
		}
		return cli.purge(ctx, *purgeColl, *purgeYes)
	case "seed":
		return cli.seed(ctx)
	case "addstaff":
		if err := addStaffCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStaffName == "" || *addStaffEmail == "" {
			addStaffCmd.Usage()
			return errHelp
		}
		return cli.addStaff(ctx, *addStaffName, *addStaffEmail, *addStaffAdmin)
	default:
		cli.printUsage()
		return errHelp
	}
}
