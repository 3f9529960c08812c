package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/memeforge-network/memeforge/internal/daemon"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats <user-id>",
	Short: "Show a member's progression snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	d, err := daemon.New(rootCmd.Version)
	if err != nil {
		return err
	}
	defer d.Close()

	st, err := d.Stats.GetOrCreate(args[0], time.Now())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "User\t%s\n", st.UserID)
	fmt.Fprintf(w, "Level\t%d\n", st.Level)
	fmt.Fprintf(w, "Lifetime earned\t%d\n", st.LifetimeEarned)
	fmt.Fprintf(w, "Earned today\t%d\n", st.DailyEarned)
	fmt.Fprintf(w, "Earned this week\t%d\n", st.WeeklyEarned)
	fmt.Fprintf(w, "Streak\t%d days\n", st.CurrentStreak)
	fmt.Fprintf(w, "Votes received\t%d\n", st.VotesReceived)
	fmt.Fprintf(w, "Badges\t%d\n", len(st.Badges))
	if !st.LastActive.IsZero() {
		fmt.Fprintf(w, "Last active\t%s\n", st.LastActive.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(st.Badges) > 0 {
		ids := make([]string, 0, len(st.Badges))
		for id := range st.Badges {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Println("\nBadges:")
		for _, id := range ids {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}
