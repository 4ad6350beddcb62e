package notify

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alejandrodnm/statarb/internal/domain"
	"github.com/olekukonko/tablewriter"
)

const compactTop = 4

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el reporte en el modo configurado.
func (c *Console) Notify(_ context.Context, report domain.RunReport) error {
	if len(report.Results) == 0 {
		fmt.Fprintf(c.out, "[%s] no pairs to optimize\n", clock(report.FinishedAt))
		return nil
	}

	if c.table {
		c.printFull(report)
	} else {
		c.printCompact(report)
	}
	return nil
}

// printCompact imprime una línea: conteos + los mejores pares optimizados.
func (c *Console) printCompact(report domain.RunReport) {
	s := report.Summary()

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d pairs → opt:%d def:%d skip:%d fail:%d (%s)",
		clock(report.FinishedAt), s.Pairs, s.Optimized, s.Defaulted, s.Skipped, s.Failed,
		report.Duration().Round(time.Millisecond))

	for _, res := range topByPnL(report.Results, compactTop) {
		p := res.Record.Params()
		fmt.Fprintf(&sb, " | %s w%d %.2f/%.2f/%.2f pnl%.2f x%d",
			res.Pair.Name(), p.Window, p.EntryZ, p.ExitZ, p.StopZ, res.Result.PnL, res.Result.Trades)
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla por par y el resumen de la ejecución.
func (c *Console) printFull(report domain.RunReport) {
	s := report.Summary()
	fmt.Fprintf(c.out, "\n[%s] run %s: %d pairs in %s\n",
		clock(report.FinishedAt), shortID(report.RunID), s.Pairs, report.Duration().Round(time.Millisecond))

	c.printTable(report.Results)

	fmt.Fprintln(c.out, "  Outcome: optimized = mejor del grid | default = sin candidato con trades suficientes")
	fmt.Fprintln(c.out, "  PnL en unidades de spread, neto de fees; solo trades cerrados")

	fmt.Fprintf(c.out, "\n  optimized:%d  default:%d  skipped:%d  failed:%d  → %d records\n",
		s.Optimized, s.Defaulted, s.Skipped, s.Failed, len(report.Records()))

	if best := topByPnL(report.Results, 1); len(best) == 1 {
		b := best[0]
		fmt.Fprintf(c.out, "  Best: %s %s pnl:%.4f trades:%d\n",
			b.Pair.Name(), b.Record.Params(), b.Result.PnL, b.Result.Trades)
	}
	fmt.Fprintln(c.out)
}

func (c *Console) printTable(results []domain.PairResult) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Pair", "HR", "Outcome", "Window", "Entry", "Exit", "Stop", "Trades", "PnL", "Note")

	for i, res := range results {
		row := []any{
			fmt.Sprintf("%d", i+1),
			res.Pair.Name(),
			fmt.Sprintf("%.4f", res.Pair.HedgeRatio),
			string(res.Outcome),
		}
		if res.Record != nil {
			p := res.Record.Params()
			row = append(row,
				fmt.Sprintf("%d", p.Window),
				fmt.Sprintf("%.2f", p.EntryZ),
				fmt.Sprintf("%.2f", p.ExitZ),
				fmt.Sprintf("%.2f", p.StopZ),
			)
		} else {
			row = append(row, "-", "-", "-", "-")
		}
		if res.Outcome == domain.OutcomeOptimized {
			row = append(row, fmt.Sprintf("%d", res.Result.Trades), fmt.Sprintf("%.4f", res.Result.PnL))
		} else {
			row = append(row, "-", "-")
		}
		row = append(row, note(res))

		table.Append(row...)
	}

	table.Render()
}

// PrintRuns imprime el histórico de ejecuciones guardado en la base de datos.
func (c *Console) PrintRuns(runs []domain.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "no runs recorded")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "Started", "Took", "Pairs", "Opt", "Def", "Skip", "Fail")
	for _, r := range runs {
		table.Append(
			shortID(r.RunID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			fmt.Sprintf("%d", r.Pairs),
			fmt.Sprintf("%d", r.Optimized),
			fmt.Sprintf("%d", r.Defaulted),
			fmt.Sprintf("%d", r.Skipped),
			fmt.Sprintf("%d", r.Failed),
		)
	}
	table.Render()
}

// --- helpers ---

// topByPnL devuelve los n pares optimizados con mayor PnL. Empates: orden de entrada.
func topByPnL(results []domain.PairResult, n int) []domain.PairResult {
	var opt []domain.PairResult
	for _, r := range results {
		if r.Outcome == domain.OutcomeOptimized && r.Record != nil {
			opt = append(opt, r)
		}
	}
	slices.SortStableFunc(opt, func(a, b domain.PairResult) int {
		return cmp.Compare(b.Result.PnL, a.Result.PnL)
	})
	if len(opt) > n {
		opt = opt[:n]
	}
	return opt
}

func note(res domain.PairResult) string {
	switch res.Outcome {
	case domain.OutcomeOptimized:
		return fmt.Sprintf("%d eligible", res.Eligible)
	case domain.OutcomeDefault:
		return "no eligible params"
	case domain.OutcomeInsufficientData:
		return fmt.Sprintf("%d samples", res.Samples)
	}
	if res.Err != nil {
		return truncate(res.Err.Error(), 40)
	}
	return ""
}

func clock(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Local().Format("15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
