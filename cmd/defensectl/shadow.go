package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var errBreakingDiff = errors.New("saved events differ")

// legacyKeys maps field names of the legacy calendar payload to the ones this service emits.
var legacyKeys = map[string]string{"profesorId": "professorId"}

type shadowReport struct {
	GoCount     int
	LegacyCount int
	Missing     []string
	Extra       []string
	Changed     []string
}

func (r shadowReport) breaking() bool {
	return len(r.Missing)+len(r.Extra)+len(r.Changed) > 0
}

func newShadowCmd() *cobra.Command {
	var (
		goBase     string
		legacyBase string
		path       string
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "shadow",
		Short: "Compare saved events served by this service with the legacy service",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: timeout}
			goEvents, err := fetchEvents(cmd.Context(), client, goBase, path)
			if err != nil {
				return fmt.Errorf("go service: %w", err)
			}
			legacyEvents, err := fetchEvents(cmd.Context(), client, legacyBase, path)
			if err != nil {
				return fmt.Errorf("legacy service: %w", err)
			}

			report := compareEvents(goEvents, legacyEvents)
			printShadowReport(cmd.OutOrStdout(), report)
			if report.breaking() {
				return errBreakingDiff
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&goBase, "go-base", "http://localhost:8080", "base URL of this service")
	cmd.Flags().StringVar(&legacyBase, "legacy-base", "http://localhost:5000", "base URL of the legacy service")
	cmd.Flags().StringVar(&path, "path", "/asignaciones/guardadas", "saved events path on both services")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	return cmd
}

// fetchEvents returns the events keyed by id. An enveloped body is unwrapped through its data field.
func fetchEvents(ctx context.Context, client *http.Client, base, path string) (map[string]interface{}, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if env, ok := decoded.(map[string]interface{}); ok {
		decoded = env["data"]
	}
	list, ok := decoded.([]interface{})
	if !ok {
		return nil, errors.New("body is not a list of events")
	}

	events := make(map[string]interface{}, len(list))
	for _, item := range list {
		ev, ok := item.(map[string]interface{})
		if !ok {
			return nil, errors.New("event is not an object")
		}
		events[fmt.Sprint(ev["id"])] = renameKeys(ev)
	}
	return events, nil
}

func renameKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			if renamed, ok := legacyKeys[k]; ok {
				k = renamed
			}
			out[k] = renameKeys(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = renameKeys(child)
		}
		return out
	default:
		return v
	}
}

func compareEvents(goEvents, legacyEvents map[string]interface{}) shadowReport {
	report := shadowReport{GoCount: len(goEvents), LegacyCount: len(legacyEvents)}
	for id, legacy := range legacyEvents {
		current, ok := goEvents[id]
		switch {
		case !ok:
			report.Missing = append(report.Missing, id)
		case !reflect.DeepEqual(current, legacy):
			report.Changed = append(report.Changed, id)
		}
	}
	for id := range goEvents {
		if _, ok := legacyEvents[id]; !ok {
			report.Extra = append(report.Extra, id)
		}
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Extra)
	sort.Strings(report.Changed)
	return report
}

func printShadowReport(w io.Writer, r shadowReport) {
	fmt.Fprintf(w, "events: go=%d legacy=%d\n", r.GoCount, r.LegacyCount)
	if len(r.Missing) > 0 {
		fmt.Fprintf(w, "missing in go: %s\n", strings.Join(r.Missing, ", "))
	}
	if len(r.Extra) > 0 {
		fmt.Fprintf(w, "only in go: %s\n", strings.Join(r.Extra, ", "))
	}
	if len(r.Changed) > 0 {
		fmt.Fprintf(w, "changed: %s\n", strings.Join(r.Changed, ", "))
	}
	if !r.breaking() {
		fmt.Fprintln(w, "no differences")
	}
}
