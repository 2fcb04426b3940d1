package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"oftalmonet/valeda-app/internal/client"
	"oftalmonet/valeda-app/internal/config"
	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const cliDateLayout = "2006-01-02"

// newCache loads config and returns a refreshed treatment cache. An
// unreachable server falls back to the offline snapshot.
func newCache(ctx context.Context, configPath string) (*client.TreatmentCache, config.ClientConfig, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, config.ClientConfig{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, config.ClientConfig{}, nil, fmt.Errorf("init logger: %w", err)
	}

	api := client.New(cfg.Client.BaseURL, client.WithTimeout(cfg.Client.Timeout))
	cache := client.NewTreatmentCache(api, client.NewFileStore(cfg.Client.OfflineFile), log)
	if err := cache.Refresh(ctx); err != nil {
		return nil, config.ClientConfig{}, nil, err
	}
	return cache, cfg.Client, log, nil
}

func searchCmd(configPath *string) *cobra.Command {
	var (
		filters       domain.SearchFilters
		treatmentType string
		from, to      string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search treatments on a running server, or in the offline snapshot when it is unreachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters.TreatmentType = domain.TreatmentType(treatmentType)
			var err error
			if filters.DateFrom, err = parseCLIDate(from, false); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if filters.DateTo, err = parseCLIDate(to, true); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			cache, _, log, err := newCache(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			out := cmd.OutOrStdout()
			if cache.Offline() {
				fmt.Fprintln(out, offlineBanner(cache.LoadedAt()))
			}
			printTreatments(out, cache.Search(filters))
			return nil
		},
	}
	cmd.Flags().StringVar(&filters.Name, "name", "", "patient name contains")
	cmd.Flags().StringVar(&filters.Doctor, "doctor", "", "doctor name contains")
	cmd.Flags().StringVar(&treatmentType, "type", "", "treatment type (right-eye, left-eye, both-eyes)")
	cmd.Flags().StringVar(&from, "from", "", "created on or after, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "created on or before, YYYY-MM-DD")
	return cmd
}

func recordSessionCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "record-session <treatment-id>",
		Short: "Record session data read from stdin, one session per line",
		Long: `Reads lines of the form

  <session-number> <YYYY-MM-DD|-> <HH:MM|-> [technician]

and saves them to the treatment. Edits are auto-saved after a quiet period
and flushed at end of input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			ctx := cmd.Context()

			cache, clientCfg, log, err := newCache(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			t, ok := cache.Get(id)
			if !ok {
				return fmt.Errorf("treatment %s not found", id)
			}
			sessions := append([]domain.Session(nil), t.Sessions...)

			saver := client.NewAutoSaver(clientCfg.AutosaveInterval, func(ctx context.Context, patch domain.TreatmentPatch) error {
				_, err := cache.Update(ctx, id, patch)
				return err
			}, log)
			defer saver.Close()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if sessions, err = applySessionLine(sessions, line); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "skipped:", err)
					continue
				}
				saver.Schedule(domain.TreatmentPatch{Sessions: append([]domain.Session(nil), sessions...), SessionsSet: true})
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			if err := saver.Flush(ctx); err != nil {
				return fmt.Errorf("save sessions: %w", err)
			}
			if cache.Offline() {
				fmt.Fprintln(cmd.OutOrStdout(), "offline: changes saved to the local snapshot only")
			}
			if saved, ok := cache.Get(id); ok {
				printTreatments(cmd.OutOrStdout(), []domain.Treatment{*saved})
			}
			return nil
		},
	}
}

// applySessionLine updates the session numbered in line, appending it if absent.
func applySessionLine(sessions []domain.Session, line string) ([]domain.Session, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return sessions, fmt.Errorf("%q: want <number> <date> <time> [technician]", line)
	}
	number, err := strconv.Atoi(fields[0])
	if err != nil {
		return sessions, fmt.Errorf("%q: invalid session number", line)
	}

	s := domain.Session{SessionNumber: number}
	if fields[1] != "-" {
		d, err := time.Parse(cliDateLayout, fields[1])
		if err != nil {
			return sessions, fmt.Errorf("%q: invalid date", line)
		}
		s.Date = &d
	}
	if fields[2] != "-" {
		if !domain.ValidSessionTime(fields[2]) {
			return sessions, fmt.Errorf("%q: invalid time", line)
		}
		s.Time = fields[2]
	}
	s.Technician = strings.Join(fields[3:], " ")

	for i := range sessions {
		if sessions[i].SessionNumber == number {
			sessions[i] = s
			return sessions, nil
		}
	}
	return append(sessions, s), nil
}

func offlineBanner(savedAt time.Time) string {
	if savedAt.IsZero() {
		return "offline: showing the last saved snapshot"
	}
	return fmt.Sprintf("offline: showing the snapshot saved %s",
		savedAt.Local().Format("2006-01-02 15:04"))
}

func parseCLIDate(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(cliDateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD", value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}

func printTreatments(w io.Writer, treatments []domain.Treatment) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATIENT\tAGE\tDOCTOR\tTYPE\tSESSIONS\tMODIFIED")
	for _, t := range treatments {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%d/%d\t%s\n",
			t.ID.Hex(), t.Patient.Name, t.Patient.Age, t.Doctor.Name, t.TreatmentType,
			domain.CountCompletedSessions(t.Sessions), len(t.Sessions),
			t.LastModified.Local().Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d treatment(s)\n", len(treatments))
}
