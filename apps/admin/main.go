package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/setup"
	"github.com/trezcool/shule/core/staff"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage"
)

func main() {
	stdLogger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		stdLogger.Fatalf("loading config: %+v", err)
	}
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	defer logger.Close()

	// createdb runs before the database exists
	if len(os.Args) > 1 && os.Args[1] == "createdb" {
		if err := newCommandLine(conf, nil, os.Stdin, os.Stdout).run(os.Args); err != nil {
			stdLogger.Printf("\nerror: %+v\n", err)
			os.Exit(1)
		}
		return
	}

	store, err := storage.NewStore(context.Background(), conf.Storage)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up store: %v", err), err)
	}

	validate, translator := core.NewValidator()
	staff.InitValidators(validate, translator)

	// start CLI
	cli := newCommandLine(conf, store, os.Stdin, os.Stdout)
	cli.staffSvc = staff.NewService(store, validate)
	cli.setupSvc = setup.NewService(store, validate)
	cli.translator = translator

	err = cli.run(os.Args)
	if cerr := store.Close(); cerr != nil {
		logger.Error(fmt.Sprintf("closing store: %v", cerr), cerr)
	}
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %+v\n", err)
		}
		os.Exit(1)
	}
}
