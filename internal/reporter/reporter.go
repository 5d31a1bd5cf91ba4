// Package reporter renders license, session and audit tables for the terminal.
package reporter

import (
	"fmt"
	"io"
	"osenaabo-go/internal/models"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Status is everything the status command shows.
type Status struct {
	Platform      string
	HardwareID    models.HardwareID
	License       models.LicenseOutcome
	Record        models.LicenseRecord
	Day           string
	Ledger        models.SessionLedger
	TargetPercent float64
	Threshold     float64
	CapitalLocked bool
	BaseBet       float64
	BettingHours  []string
	WithinHours   bool
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func yesNo(b bool) string {
	if b {
		return text.FgGreen.Sprint("yes")
	}
	return text.FgRed.Sprint("no")
}

// RenderStatus 打印许可证与当日交易状态
func RenderStatus(w io.Writer, s Status) {
	t := newTable(w, "Osenaabo status")
	t.AppendRow(table.Row{"Platform", s.Platform})
	t.AppendRow(table.Row{"Computer", s.HardwareID.Display()})
	t.AppendRow(table.Row{"License", licenseLine(s.License)})
	if s.Record.Bound() {
		t.AppendRow(table.Row{"Bound to", s.Record.HardwareID.Short()})
		t.AppendRow(table.Row{"Activated", s.Record.ActivationDate})
	}
	if s.Record.Plan != "" {
		t.AppendRow(table.Row{"Plan", string(s.Record.Plan)})
	}
	if s.Record.Expires != "" {
		t.AppendRow(table.Row{"Expires", string(s.Record.Expires)})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Day", s.Day})
	t.AppendRow(table.Row{"Sessions today", len(s.Ledger.Sessions)})
	if last, ok := s.Ledger.Last(); ok {
		t.AppendRow(table.Row{"Capital", formatAmount(last.CapitalAfter)})
	}
	t.AppendRow(table.Row{"Daily target", fmt.Sprintf("%.2f%% / %.2f%%", s.TargetPercent, s.Threshold)})
	t.AppendRow(table.Row{"Target reached", yesNo(s.Ledger.TargetReached || s.TargetPercent >= s.Threshold)})
	t.AppendRow(table.Row{"Capital locked", yesNo(s.CapitalLocked)})
	if s.BaseBet > 0 {
		t.AppendRow(table.Row{"Base bet", formatAmount(s.BaseBet)})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Betting hours", strings.Join(s.BettingHours, "\n")})
	t.AppendRow(table.Row{"Within hours now", yesNo(s.WithinHours)})
	t.Render()
}

func licenseLine(o models.LicenseOutcome) string {
	if o.Valid {
		return text.FgGreen.Sprint(o.Message)
	}
	return text.FgRed.Sprint(o.Message)
}

// RenderOutcome prints an activation outcome.
func RenderOutcome(w io.Writer, o models.LicenseOutcome) {
	t := newTable(w, "")
	t.AppendRow(table.Row{"Result", licenseLine(o)})
	if o.Details != "" {
		t.AppendRow(table.Row{"Details", o.Details})
	}
	if o.Valid {
		if o.TelegramID != "" {
			t.AppendRow(table.Row{"Telegram ID", string(o.TelegramID)})
		}
		if o.Plan != "" {
			t.AppendRow(table.Row{"Plan", string(o.Plan)})
		}
		if o.Expires != "" {
			t.AppendRow(table.Row{"Expires", string(o.Expires)})
		}
		t.AppendRow(table.Row{"Computer", o.HardwareID.Display()})
		if o.NewlyBound {
			t.AppendRow(table.Row{"Binding", "License is now permanently bound to this computer"})
		}
	}
	t.Render()
}

// RenderSessions prints one day's ledger.
func RenderSessions(w io.Writer, day string, ledger models.SessionLedger) {
	t := newTable(w, "Sessions "+day)
	t.AppendHeader(table.Row{"#", "Time", "Profit", "Capital after", "Target"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	var total float64
	for i, s := range ledger.Sessions {
		total += s.Profit
		t.AppendRow(table.Row{i + 1, s.Timestamp.Local().Format("15:04:05"), formatAmount(s.Profit), formatAmount(s.CapitalAfter), yesNo(s.TargetReached)})
	}
	t.AppendFooter(table.Row{"", "Total", formatAmount(total), "", yesNo(ledger.TargetReached)})
	t.Render()
}

// RenderAudit prints audit events, oldest first.
func RenderAudit(w io.Writer, events []models.AuditEvent) {
	t := newTable(w, "Audit trail")
	t.AppendHeader(table.Row{"Time", "Kind", "OK", "Message", "Details"})
	for _, e := range events {
		t.AppendRow(table.Row{e.Time.Local().Format(time.DateTime), string(e.Kind), yesNo(e.OK), e.Message, formatFields(e.Fields)})
	}
	if len(events) == 0 {
		t.AppendRow(table.Row{"", "", "", "no events", ""})
	}
	t.Render()
}

func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	return strings.Join(parts, " ")
}

func formatAmount(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := fmt.Sprintf("%.2f", v)
	intPart, frac, _ := strings.Cut(whole, ".")
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
