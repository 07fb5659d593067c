package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/miradorstack/intelligence-core/internal/models"
)

const (
	formatJSON  = "json"
	formatTable = "table"
	formatCSV   = "csv"
)

type formatter func(w io.Writer, header []string, rows [][]string) error

func formatterFor(format string) (formatter, error) {
	switch format {
	case formatTable:
		return writeTable, nil
	case formatCSV:
		return writeCSV, nil
	case formatJSON:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (want json, table or csv)", format)
	}
}

func render(w io.Writer, format string, v any) error {
	write, err := formatterFor(format)
	if err != nil {
		return err
	}
	if write == nil {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	header, rows, err := tabulate(v)
	if err != nil {
		return err
	}
	return write(w, header, rows)
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// tabulate flattens a command result into a header and rows.
func tabulate(v any) ([]string, [][]string, error) {
	fieldHeader := []string{"FIELD", "VALUE"}
	switch data := v.(type) {
	case models.Summary:
		rows := [][]string{
			{"id", data.ID},
			{"timestamp", formatTime(data.Timestamp)},
			{"narrative", data.Narrative},
		}
		rows = append(rows, driftRows("drift.", data.DriftAnalysis)...)
		rows = append(rows, performanceRows("performance.", data.PerformanceOverview)...)
		rows = append(rows,
			[]string{"signals.benchmarks", strconv.Itoa(len(data.CorrelatedSignals.Benchmarks))},
			[]string{"signals.telemetry", strconv.Itoa(len(data.CorrelatedSignals.Telemetry))},
			[]string{"signals.anomalies", strconv.Itoa(len(data.CorrelatedSignals.Anomalies))},
		)
		for _, c := range data.CorrelatedSignals.Correlations {
			rows = append(rows, []string{"correlation." + c.Type, formatFloat(c.Confidence)})
		}
		rows = append(rows,
			[]string{"anomalies", strconv.Itoa(len(data.Anomalies))},
			[]string{"anomalies.critical", strconv.Itoa(data.CriticalAnomalies())},
		)
		return fieldHeader, rows, nil
	case models.DriftAnalysis:
		return fieldHeader, driftRows("", data), nil
	case models.PerformanceOverview:
		return fieldHeader, performanceRows("", data), nil
	case []string:
		rows := make([][]string, 0, len(data))
		for _, system := range data {
			rows = append(rows, []string{system})
		}
		return []string{"SYSTEM"}, rows, nil
	case []models.AnomalyPattern:
		rows := make([][]string, 0, len(data))
		for _, p := range data {
			rows = append(rows, []string{
				p.Type,
				strconv.Itoa(p.Occurrences),
				formatFloat(p.Prevalence),
				string(p.MaxSeverity),
				formatTime(p.FirstSeen),
				formatTime(p.LastSeen),
			})
		}
		return []string{"TYPE", "OCCURRENCES", "PREVALENCE", "MAX_SEVERITY", "FIRST_SEEN", "LAST_SEEN"}, rows, nil
	case models.SignalsResult:
		rows, err := signalRows(data)
		if err != nil {
			return nil, nil, err
		}
		return []string{"SYSTEM", "TIMESTAMP", "PAYLOAD"}, rows, nil
	default:
		return nil, nil, fmt.Errorf("no tabular form for %T", v)
	}
}

func driftRows(prefix string, d models.DriftAnalysis) [][]string {
	return [][]string{
		{prefix + "driftDetected", strconv.FormatBool(d.DriftDetected)},
		{prefix + "severity", string(d.Severity)},
		{prefix + "affectedSchemas", strings.Join(d.AffectedSchemas, ";")},
	}
}

func performanceRows(prefix string, p models.PerformanceOverview) [][]string {
	return [][]string{
		{prefix + "avgLatency", formatFloat(p.AvgLatency)},
		{prefix + "p95Latency", formatFloat(p.P95Latency)},
		{prefix + "p99Latency", formatFloat(p.P99Latency)},
		{prefix + "throughput", formatFloat(p.Throughput)},
	}
}

func signalRows(result models.SignalsResult) ([][]string, error) {
	var rows [][]string
	appendSignals := func(system string, signals []models.Signal) error {
		for _, s := range signals {
			payload, err := json.Marshal(s.Payload)
			if err != nil {
				return fmt.Errorf("encode payload: %w", err)
			}
			name := system
			if name == "" {
				name = s.Source
			}
			rows = append(rows, []string{name, formatTime(s.Timestamp), string(payload)})
		}
		return nil
	}

	switch result.Kind {
	case models.ResultSignals:
		if err := appendSignals("", result.Signals); err != nil {
			return nil, err
		}
	case models.ResultSystem:
		if result.System != nil {
			if err := appendSignals(result.System.System, result.System.Signals); err != nil {
				return nil, err
			}
		}
	case models.ResultSystems:
		for _, sys := range result.Systems {
			if err := appendSignals(sys.System, sys.Signals); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unknown signals result kind %q", result.Kind)
	}
	return rows, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
