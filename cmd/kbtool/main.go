package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"salonagent/internal/config"
	"salonagent/internal/contacts"
	"salonagent/internal/export"
	"salonagent/internal/salon"
)

const usage = `usage: kbtool <command> [flags]

commands:
  check    load the knowledge base and print warnings
  migrate  convert the prose knowledge files into one YAML file
  export   write services, staff and schedule to an xlsx workbook
`

func main() {
	_ = godotenv.Load(".env.local")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	var err error
	switch os.Args[1] {
	case "check":
		err = runCheck(os.Args[2:], &logger)
	case "migrate":
		err = runMigrate(os.Args[2:], &logger)
	case "export":
		err = runExport(os.Args[2:], &logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error().Err(err).Str("command", os.Args[1]).Msg("failed")
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("SALON_CONFIG_PATH")
	}
	return config.Load(path)
}

func runCheck(args []string, logger *zerolog.Logger) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (default $SALON_CONFIG_PATH or configs/config.yaml)")
	strict := fs.Bool("strict", false, "fail when the knowledge base has warnings")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	*strict = *strict || cfg.Knowledge.Strict
	cfg.Knowledge.Strict = false
	db, err := cfg.LoadKnowledge()
	if err != nil {
		return err
	}

	for _, w := range db.Warnings {
		logger.Warn().Msg(w)
	}
	logger.Info().
		Str("store", db.Store.Name).
		Str("timezone", db.Store.Timezone).
		Int("services", len(db.Services)).
		Int("staff", len(db.Staff)).
		Int("bookable", len(db.BookableStaff())).
		Int("warnings", len(db.Warnings)).
		Msg("knowledge base ok")

	if *strict && len(db.Warnings) > 0 {
		return fmt.Errorf("%d warnings: %w", len(db.Warnings), salon.ErrInvalidKnowledge)
	}
	return nil
}

func runMigrate(args []string, logger *zerolog.Logger) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "config file")
	out := fs.String("out", "data/salon.yaml", "output YAML file")
	force := fs.Bool("force", false, "overwrite an existing output file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if _, err = os.Stat(*out); err == nil && !*force {
		return fmt.Errorf("%s exists, use -force to overwrite", *out)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	db, err := salon.LoadDir(cfg.Knowledge.Dir, cfg.KnowledgeOptions())
	if err != nil {
		return err
	}
	data, err := salon.Export(db).Marshal()
	if err != nil {
		return err
	}
	if err = os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	logger.Info().Str("from", cfg.Knowledge.Dir).Str("to", *out).Int("services", len(db.Services)).Msg("knowledge migrated")
	return nil
}

func runExport(args []string, logger *zerolog.Logger) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "config file")
	out := fs.String("out", "salon.xlsx", "output workbook")
	from := fs.String("from", "", "first schedule day, YYYY-MM-DD (default today)")
	days := fs.Int("days", 14, "schedule length in days")
	withContacts := fs.Bool("contacts", false, "include the contacts sheet")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	db, err := cfg.LoadKnowledge()
	if err != nil {
		return err
	}

	opts := export.Options{From: time.Now().In(db.Location()), Days: *days}
	if *from != "" {
		opts.From, err = time.ParseInLocation(time.DateOnly, *from, db.Location())
		if err != nil {
			return fmt.Errorf("bad -from: %w", err)
		}
	}
	if *withContacts {
		store, err := contacts.Open(cfg.Contacts.Path, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		list, err := store.List(context.Background())
		if err != nil {
			return err
		}
		if list == nil {
			list = []contacts.Contact{}
		}
		opts.Contacts = list
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err = export.Knowledge(f, db, opts); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	logger.Info().Str("file", *out).Int("days", *days).Bool("contacts", *withContacts).Msg("workbook written")
	return nil
}
