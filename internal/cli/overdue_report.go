package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/database/lending"
	"github.com/mrlokans/librarydesk/internal/ledger"
	"github.com/mrlokans/librarydesk/internal/tasks"
)

// OverdueReportCommand prints every loan with unpaid overdue weeks.
type OverdueReportCommand struct {
	DatabasePath string
	AsOf         string
	JSON         bool
	Record       bool

	out io.Writer
	now func() time.Time
}

func NewOverdueReportCommand() *OverdueReportCommand {
	return &OverdueReportCommand{out: os.Stdout, now: time.Now}
}

func (cmd *OverdueReportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("overdue-report", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the SQLite database (default: DATABASE_PATH or "+config.DefaultDatabasePath+")")
	fs.StringVar(&cmd.AsOf, "as-of", "", "Compute fees as of this date (YYYY-MM-DD, default: today)")
	fs.BoolVar(&cmd.JSON, "json", false, "Print the report as JSON")
	fs.BoolVar(&cmd.Record, "record", false, "Also record an overdue notice for each loan")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s overdue-report [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List open loans that owe late fees, using LEDGER_GRACE_PERIOD_WEEKS\n")
		fmt.Fprintf(os.Stderr, "and LEDGER_WEEKLY_RATE from the environment.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s overdue-report -db ./librarydesk.db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s overdue-report -as-of 2024-03-15 -json\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.AsOf != "" {
		if _, err := time.Parse(time.DateOnly, cmd.AsOf); err != nil {
			return fmt.Errorf("invalid -as-of date %q: expected YYYY-MM-DD", cmd.AsOf)
		}
	}
	return nil
}

func (cmd *OverdueReportCommand) Run() error {
	db, err := openDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.NewConfig().Ledger
	repo := lending.NewRepository(db.DB)
	l := ledger.New(repo, ledger.NewFeePolicy(cfg.GracePeriodWeeks, cfg.WeeklyRate))
	return cmd.report(context.Background(), l, repo)
}

func (cmd *OverdueReportCommand) report(ctx context.Context, l *ledger.Ledger, recorder tasks.NoticeRecorder) error {
	if cmd.AsOf != "" {
		asOf, err := time.Parse(time.DateOnly, cmd.AsOf)
		if err != nil {
			return fmt.Errorf("invalid -as-of date %q: %w", cmd.AsOf, err)
		}
		l.SetClock(func() time.Time { return asOf })
	} else if cmd.now != nil {
		l.SetClock(cmd.now)
	}

	loans, err := l.OverdueLoans(ctx)
	if err != nil {
		return fmt.Errorf("failed to list overdue loans: %w", err)
	}

	if cmd.JSON {
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(loans); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		writeOverdueTable(cmd.out, loans)
	}

	if cmd.Record {
		result, err := tasks.ScanOverdueLoans(ctx, l, recorder)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Recorded %d new overdue notices\n", result.NewNotices)
	}
	return nil
}

func writeOverdueTable(out io.Writer, loans []ledger.OverdueLoan) {
	if len(loans) == 0 {
		fmt.Fprintln(out, "No overdue loans")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tDOCUMENT\tLEND DATE\tWEEKS\tFEE DUE")
	for _, loan := range loans {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n",
			loan.Email, loan.DocumentID, loan.LendDate.Format(time.DateOnly), loan.WeeksOverdue, loan.FeeDue.StringFixed(2))
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d overdue loans\n", len(loans))
}
