package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/entitystore"
)

// collections returns the requested collection, or every collection in the store.
func (cli *commandLine) collections(ctx context.Context, only string) ([]string, error) {
	if only != "" {
		return []string{only}, nil
	}
	names, err := cli.store.Collections(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (cli *commandLine) count(ctx context.Context, only string) error {
	names, err := cli.collections(ctx, only)
	if err != nil {
		return err
	}
	for _, name := range names {
		n, err := cli.store.Count(ctx, name, nil)
		if err != nil {
			return errors.Wrapf(err, "counting %s", name)
		}
		cli.printf("%-24s %d\n", name, n)
	}
	return nil
}

func (cli *commandLine) dump(ctx context.Context, names []string) (map[string][]entitystore.Record, error) {
	dump := make(map[string][]entitystore.Record, len(names))
	for _, name := range names {
		records, err := cli.store.GetAll(ctx, name)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
		dump[name] = records
	}
	return dump, nil
}

func (cli *commandLine) export(ctx context.Context, format, only, output string) error {
	names, err := cli.collections(ctx, only)
	if err != nil {
		return err
	}
	dump, err := cli.dump(ctx, names)
	if err != nil {
		return err
	}

	var w io.Writer = cli.out
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer f.Close()
		w = f
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(dump), "encoding json")
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(dump); err != nil {
			return errors.Wrap(err, "encoding yaml")
		}
		return enc.Close()
	default:
		return errors.Errorf("unknown format %q (json, yaml)", format)
	}
}

// copy writes every collection of the current store into the target backend,
// one goroutine per collection, then diffs both sides.
func (cli *commandLine) copy(ctx context.Context, target core.StorageConfig) error {
	if target.Backend == cli.conf.Storage.Backend && target.DataDir == cli.conf.Storage.DataDir &&
		target.DSN == cli.conf.Storage.DSN && target.RedisAddr == cli.conf.Storage.RedisAddr {
		return errors.New("source and target are the same store")
	}
	dst, err := openStoreFunc(ctx, target)
	if err != nil {
		return errors.Wrap(err, "opening target")
	}
	defer func() { _ = dst.Close() }()

	names, err := cli.collections(ctx, "")
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			records, err := cli.store.GetAll(gctx, name)
			if err != nil {
				return errors.Wrapf(err, "reading %s", name)
			}
			return errors.Wrapf(dst.Replace(gctx, name, records), "writing %s", name)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, name := range names {
		diff, err := diffCollections(ctx, cli.store, dst, name)
		if err != nil {
			return err
		}
		if diff != "" {
			cli.printf("%s", diff)
			return errors.Errorf("%s differs after copy", name)
		}
		n, _ := dst.Count(ctx, name, nil)
		cli.printf("%-24s %d copied\n", name, n)
	}
	return nil
}

// diffCollections returns a unified diff of the collection on both stores, empty when equal.
func diffCollections(ctx context.Context, a, b *entitystore.Store, name string) (string, error) {
	render := func(s *entitystore.Store) (string, error) {
		records, err := s.GetAll(ctx, name)
		if err != nil {
			return "", errors.Wrapf(err, "reading %s", name)
		}
		out, err := json.MarshalIndent(records, "", "  ")
		return string(out), err
	}
	left, err := render(a)
	if err != nil {
		return "", err
	}
	right, err := render(b)
	if err != nil {
		return "", err
	}
	if left == right {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(left),
		B:        difflib.SplitLines(right),
		FromFile: "source/" + name,
		ToFile:   "target/" + name,
		Context:  3,
	})
}

// purge empties a collection. When stdin is a terminal the operator must type the
// collection name; otherwise -yes is required.
func (cli *commandLine) purge(ctx context.Context, name string, yes bool) error {
	n, err := cli.store.Count(ctx, name, nil)
	if err != nil {
		return err
	}
	if !yes {
		if !isTerminalFunc() {
			return errors.New("refusing to purge without -yes when stdin is not a terminal")
		}
		cli.printf("This deletes %d records from %q. Type the collection name to confirm: ", n, name)
		answer, err := bufio.NewReader(cli.in).ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		if strings.TrimSpace(answer) != name {
			return errAborted
		}
	}
	if err := cli.store.Replace(ctx, name, nil); err != nil {
		return errors.Wrapf(err, "purging %s", name)
	}
	cli.printf("%s: %d records deleted\n", name, n)
	return nil
}
