package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"metargb/transfusion-service/internal/config"
	"metargb/transfusion-service/internal/eligibility"
	"metargb/transfusion-service/internal/holiday"
	"metargb/transfusion-service/internal/models"
	"metargb/transfusion-service/internal/repository"
	"metargb/transfusion-service/internal/service"
	"metargb/transfusion-service/pkg/jalali"
	"metargb/transfusion-service/pkg/logger"
)

type nextOptions struct {
	date         string
	preset       string
	weight       float64
	hbPostTarget float64
	hbThreshold  float64
	rateR        float64
	holidayFiles []string
	fetch        bool
}

func newNextCommand() *cobra.Command {
	opts := nextOptions{}

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Compute the next transfusion date and dose",
		Long: "Compute the next transfusion date from the current date and the patient's " +
			"hemoglobin model. Holidays come from local files (--holidays) and, with --fetch, " +
			"from the configured holiday feeds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runNext(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "", "Current Jalali date, e.g. 1404/01/01 (default today)")
	cmd.Flags().StringVar(&opts.preset, "preset", "major", "Rate preset (major, intermedia, custom)")
	cmd.Flags().Float64Var(&opts.weight, "weight", 0, "Patient weight in kg (required)")
	cmd.Flags().Float64Var(&opts.hbPostTarget, "hb-post", 0, "Post-transfusion Hb target, g/dL (custom preset)")
	cmd.Flags().Float64Var(&opts.hbThreshold, "hb-threshold", 0, "Hb threshold, g/dL (custom preset)")
	cmd.Flags().Float64Var(&opts.rateR, "rate", 0, "Hb decline per day, g/dL (custom preset)")
	cmd.Flags().StringSliceVar(&opts.holidayFiles, "holidays", nil, "Holiday JSON file(s)")
	cmd.Flags().BoolVar(&opts.fetch, "fetch", false, "Also fetch the configured holiday feeds")
	_ = cmd.MarkFlagRequired("weight")

	return cmd
}

func runNext(ctx context.Context, out io.Writer, cfg *config.Config, opts nextOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.New("transfusionctl", os.Stderr, os.Getenv("LOG_LEVEL"))

	current, err := resolveDate(opts.date)
	if err != nil {
		return err
	}

	rates, err := service.ResolveRateModel(opts.preset, models.RateModel{
		HbPostTarget: opts.hbPostTarget,
		HbThreshold:  opts.hbThreshold,
		RateR:        opts.rateR,
	})
	if err != nil {
		return err
	}

	var sources []holiday.Source
	for _, path := range opts.holidayFiles {
		sources = append(sources, holiday.NewFileSource(path))
	}
	if opts.fetch {
		sources = append(sources, holiday.NewHTTPSources(cfg.HolidayURLs, cfg.HolidayFetchTimeout)...)
	}

	calendar := eligibility.New(cfg.RestDay)
	if len(sources) > 0 {
		// Missing holiday data degrades the result, it does not stop it.
		if err := holiday.NewLoader(calendar, log, nil).LoadAll(ctx, sources...); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	svc, err := service.NewScheduleService(cfg.Policy, calendar, log, nil)
	if err != nil {
		return err
	}

	result, err := svc.ComputeNext(ctx, models.PatientInput{
		CurrentDate: current,
		RateModel:   rates,
		WeightKg:    opts.weight,
	})
	if err != nil {
		return err
	}

	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(body))
	return err
}

func resolveDate(text string) (jalali.Date, error) {
	if text == "" {
		return jalali.Today(time.Now())
	}
	return jalali.Parse(text)
}

type syncOptions struct {
	urls  []string
	files []string
}

func newHolidaysCommand() *cobra.Command {
	holidaysCmd := &cobra.Command{
		Use:   "holidays",
		Short: "Holiday data commands",
	}

	opts := syncOptions{}
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch holiday feeds and store them in MySQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.DatabaseEnabled() {
				return errors.New("DB_HOST is not set")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := repository.Open(ctx, cfg.DSN(), repository.PoolConfig{Retries: 3})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.ValidateSchema(ctx, db, repository.HolidaysSchema); err != nil {
				return err
			}

			urls := opts.urls
			if len(urls) == 0 && len(opts.files) == 0 {
				urls = cfg.HolidayURLs
			}
			sources := holiday.NewHTTPSources(urls, cfg.HolidayFetchTimeout)
			for _, path := range opts.files {
				sources = append(sources, holiday.NewFileSource(path))
			}

			return runSync(ctx, cmd.OutOrStdout(), repository.NewHolidayRepository(db), sources)
		},
	}
	syncCmd.Flags().StringSliceVar(&opts.urls, "url", nil, "Holiday feed URL(s) (default HOLIDAY_URLS)")
	syncCmd.Flags().StringSliceVar(&opts.files, "file", nil, "Holiday JSON file(s)")

	holidaysCmd.AddCommand(syncCmd)
	return holidaysCmd
}

// holidayStore persists fetched holiday records.
type holidayStore interface {
	SaveAll(ctx context.Context, source string, records []eligibility.Record) (int, error)
}

// runSync stores every source it can fetch. Failed sources are reported and
// the returned error joins them.
func runSync(ctx context.Context, out io.Writer, store holidayStore, sources []holiday.Source) error {
	var failures []error
	for _, src := range sources {
		records, err := src.FetchAll(ctx)
		if err != nil {
			fmt.Fprintf(out, "%s: fetch failed: %v\n", src.Name(), err)
			failures = append(failures, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		written, err := store.SaveAll(ctx, src.Name(), records)
		if err != nil {
			fmt.Fprintf(out, "%s: save failed: %v\n", src.Name(), err)
			failures = append(failures, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		fmt.Fprintf(out, "%s: %d holidays stored\n", src.Name(), written)
	}
	return errors.Join(failures...)
}
