package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/cookie-engine/internal/infra/storage"
	"github.com/MRamiBalles/cookie-engine/internal/platform/logger"
	"github.com/MRamiBalles/cookie-engine/internal/save"
)

func openStore() (*storage.SQLiteSaveRepository, *storage.SQLiteEventRepository, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := storage.InitSQLite(cfg.Storage.SQLitePath, cfg.Storage.MaxOpenConns)
	if err != nil {
		return nil, nil, nil, err
	}
	if slotName == "" {
		slotName = cfg.Storage.Slot
	}
	return storage.NewSQLiteSaveRepository(db), storage.NewSQLiteEventRepository(db), func() { db.Close() }, nil
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List save slots, or show one with inspect show",
		RunE: func(cmd *cobra.Command, args []string) error {
			saves, _, closeDB, err := openStore()
			if err != nil {
				return err
			}
			defer closeDB()

			recs, err := saves.List(cmd.Context())
			if err != nil {
				return err
			}
			table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Slot", "Version", "Saved"}))
			for _, r := range recs {
				_ = table.Append([]string{r.Slot, fmt.Sprint(r.Version), humanize.Time(r.SavedAt)})
			}
			return table.Render()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [slot]",
		Short: "Decode a save slot and print its headline numbers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saves, _, closeDB, err := openStore()
			if err != nil {
				return err
			}
			defer closeDB()
			slot := slotName
			if len(args) == 1 {
				slot = args[0]
			}
			return showSlot(cmd.Context(), saves, slot)
		},
	})
	return cmd
}

func showSlot(ctx context.Context, saves storage.SaveRepository, slot string) error {
	rec, err := saves.Get(ctx, slot)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no save in slot %q", slot)
	}
	if err != nil {
		return err
	}
	s, err := save.Decode(rec.Data)
	if err != nil {
		color.New(color.FgRed, color.Bold).Printf("Slot %s is corrupt: %v\n", slot, err)
		return nil
	}

	color.New(color.FgCyan, color.Bold).Printf("Slot %s (v%d, saved %s)\n", slot, s.Version, humanize.Time(s.SavedAt()))
	fmt.Printf("Balance:   %s\n", logger.Cookies(s.Balance))
	fmt.Printf("Lifetime:  %s\n", logger.Cookies(s.LifetimeProduced))
	fmt.Printf("Clicks:    %s\n", humanize.Comma(s.TotalClicks))
	fmt.Printf("Unlocked:  %d achievements\n", len(s.UnlockedAchievements()))

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Producer", "Owned", "Level"}))
	for _, p := range s.Producers {
		_ = table.Append([]string{p.ID, humanize.Comma(int64(p.Count)), fmt.Sprint(p.Level)})
	}
	return table.Render()
}

func newHistoryCmd() *cobra.Command {
	var since time.Duration
	var eventType string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print persisted events for the slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, events, closeDB, err := openStore()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := cmd.Context()
			if eventType != "" {
				list, err := events.GetByEventType(ctx, slotName, eventType)
				if err != nil {
					return err
				}
				table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Seq", "When", "Actor", "Target"}))
				for _, e := range list {
					_ = table.Append([]string{fmt.Sprint(e.Seq), humanize.Time(e.Timestamp), e.ActorID, e.TargetID})
				}
				return table.Render()
			}

			recap, totals, err := storage.NewReconstructor(events).GenerateRecap(ctx, slotName, time.Now().Add(-since))
			if err != nil {
				return err
			}
			good := color.New(color.FgGreen).SprintFunc()
			bad := color.New(color.FgRed).SprintFunc()
			table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"When", "Event", "Summary"}))
			for _, r := range recap {
				summary := r.Summary
				switch r.Impact {
				case "POSITIVE":
					summary = good(summary)
				case "NEGATIVE":
					summary = bad(summary)
				}
				_ = table.Append([]string{r.Timestamp.Format("15:04:05"), r.EventType, summary})
			}
			if err := table.Render(); err != nil {
				return err
			}
			fmt.Printf("\n%d purchases, %d unlocks, %d research, %d prestiges, %s rewarded, %s offline\n",
				totals.Purchases, totals.Unlocks, totals.Research, totals.Prestiges,
				logger.Cookies(totals.Rewarded), logger.Cookies(totals.OfflineCredit))
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look")
	cmd.Flags().StringVar(&eventType, "type", "", "list only events of this type")
	return cmd
}
