package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/memeforge-network/memeforge/internal/daemon"
)

func init() {
	questsCmd.AddCommand(questsClaimCmd)
	rootCmd.AddCommand(questsCmd)
}

var questsCmd = &cobra.Command{
	Use:   "quests <user-id>",
	Short: "Show a member's weekly quest progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuests,
}

var questsClaimCmd = &cobra.Command{
	Use:   "claim <user-id> <tier>",
	Short: "Claim a quest tier reward for a member",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuestsClaim,
}

func runQuests(cmd *cobra.Command, args []string) error {
	d, err := daemon.New(rootCmd.Version)
	if err != nil {
		return err
	}
	defer d.Close()

	progress, err := d.Quests.Progress(args[0], time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Week %s\n\n", progress.Week)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tSTATUS\tREWARD\tSLOTS LEFT\tPATHS")
	for _, t := range progress.Tiers {
		satisfied := 0
		for _, p := range t.Paths {
			if p.Satisfied {
				satisfied++
			}
		}
		reward := strconv.FormatInt(t.Reward, 10)
		if t.Claim != nil && t.Claim.Boost > 0 {
			reward = fmt.Sprintf("%d (+%d boost)", t.Claim.Reward, t.Claim.Boost)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d/%d satisfied\n",
			t.Tier, t.Status, reward, t.SlotsRemaining, satisfied, len(t.Paths))
	}
	return w.Flush()
}

func runQuestsClaim(cmd *cobra.Command, args []string) error {
	tier, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("tier must be a number: %q", args[1])
	}

	d, err := daemon.New(rootCmd.Version)
	if err != nil {
		return err
	}
	defer d.Close()

	claim, err := d.Quests.Claim(args[0], tier, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Claimed tier %d for week %s: %d points", claim.Tier, claim.Week, claim.Reward)
	if claim.Boost > 0 {
		fmt.Printf(" + %d boost", claim.Boost)
	}
	fmt.Println()
	return nil
}
