package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/atvirokodosprendimai/gprcatalog/internal/application"
	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
)

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

// formatCell renders a decoded JSON value for a table cell.
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		if t == "" {
			return "-"
		}
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return "?"
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

var recordColumns = map[domain.Kind][]string{
	domain.KindSoilType:       {"id", "name", "description"},
	domain.KindMaterial:       {"id", "name", "shape", "material_id"},
	domain.KindTargetType:     {"id", "name", "shape", "material_id"},
	domain.KindAntenna:        {"id", "name", "frequency", "manufacturer"},
	domain.KindPulseType:      {"id", "name", "waveform"},
	domain.KindSoilBoundary:   {"id", "soil_type_id", "angle", "roughness", "humidity"},
	domain.KindObjectPortrait: {"id", "target_type_id", "soil_type_id", "antenna_id", "pulse_id", "result_file_path"},
}

func printRecords(kind domain.Kind, items []map[string]any) {
	columns := recordColumns[kind]
	headers := make([]string, 0, len(columns))
	for _, c := range columns {
		headers = append(headers, strings.ToUpper(c))
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, 0, len(columns))
		for _, c := range columns {
			row = append(row, formatCell(item[c]))
		}
		rows = append(rows, row)
	}
	printTable(headers, rows)
}

func printRecord(item map[string]any) {
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][2]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, [2]string{k, formatCell(item[k])})
	}
	printKV(rows)
}

func printCounts(counts map[domain.Kind]int64, total int64) {
	rows := make([][]string, 0, len(domain.Kinds)+1)
	for _, kind := range domain.Kinds {
		rows = append(rows, []string{kind.String(), strconv.FormatInt(counts[kind], 10)})
	}
	rows = append(rows, []string{"total", strconv.FormatInt(total, 10)})
	printTable([]string{"KIND", "COUNT"}, rows)
}

func printSearch(result application.SearchResult) {
	rows := make([][]string, 0, result.TotalResults)
	for _, kind := range domain.Kinds {
		for _, hit := range result.Results[kind] {
			rows = append(rows, []string{kind.String(), uintToString(hit.ID), hit.Name, formatCell(hit.Shape), formatCell(hit.Description)})
		}
	}
	printTable([]string{"KIND", "ID", "NAME", "SHAPE", "DESCRIPTION"}, rows)
}

func printBatchResult(result application.BatchResult) {
	rows := make([][]string, 0, len(result.PerKind))
	for _, kind := range domain.Kinds {
		if n, ok := result.PerKind[kind]; ok {
			rows = append(rows, []string{kind.String(), strconv.Itoa(n)})
		}
	}
	printTable([]string{"KIND", "CREATED"}, rows)
	fmt.Printf("total records: %d\n", result.TotalRecords)
}

func printRowImport(result application.RowImportResult) {
	printKV([][2]string{
		{"successful", strconv.Itoa(result.Successful)},
		{"failed", strconv.Itoa(result.Failed)},
	})
	for _, msg := range result.Errors {
		fmt.Println("  " + msg)
	}
}
