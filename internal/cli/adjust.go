package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/memeforge-network/memeforge/internal/app/intake"
	"github.com/memeforge-network/memeforge/internal/daemon"
)

func init() {
	adjustCmd.Flags().Int64Var(&adjustDelta, "delta", 0, "Point delta to apply (may be negative)")
	adjustCmd.Flags().StringVar(&adjustReason, "reason", "", "Audit reason (required)")
	adjustCmd.Flags().StringSliceVar(&adjustBadges, "badge", nil, "Badge id to grant (repeatable)")
	adjustCmd.Flags().StringSliceVar(&adjustCounters, "counter", nil, "Counter delta as name=value (repeatable)")
	rootCmd.AddCommand(adjustCmd)
}

var (
	adjustDelta    int64
	adjustReason   string
	adjustBadges   []string
	adjustCounters []string
)

var adjustCmd = &cobra.Command{
	Use:   "adjust <user-id>",
	Short: "Apply a manual stat correction",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdjust,
}

func runAdjust(cmd *cobra.Command, args []string) error {
	counters, err := parseCounters(adjustCounters)
	if err != nil {
		return err
	}

	d, err := daemon.New(rootCmd.Version)
	if err != nil {
		return err
	}
	defer d.Close()

	st, err := d.Intake.Adjust(intake.Adjustment{
		UserID:   args[0],
		Delta:    adjustDelta,
		Counters: counters,
		Badges:   adjustBadges,
		Reason:   adjustReason,
	}, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Adjusted %s: lifetime=%d level=%d\n", st.UserID, st.LifetimeEarned, st.Level)
	return nil
}

func parseCounters(pairs []string) (map[string]int64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]int64, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("counter %q: want name=value", p)
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter %q: %w", p, err)
		}
		out[name] = v
	}
	return out, nil
}
