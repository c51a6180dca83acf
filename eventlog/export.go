package eventlog

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

// WriteJSONL writes the journal as JSON Lines, one event per line. The
// output round-trips through ReadJSONL.
func WriteJSONL(w io.Writer, events []Event) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := range events {
		if err := enc.Encode(events[i]); err != nil {
			return fmt.Errorf("encode event %d: %w", events[i].Seq, err)
		}
	}
	return bw.Flush()
}

// ReadJSONL parses a journal exported with WriteJSONL. Blank lines are
// skipped; the result is ordered by sequence number.
func ReadJSONL(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Seq < events[j].Seq })
	return events, nil
}

var csvHeader = []string{"seq", "id", "type", "token_id", "timestamp", "prev_hash", "chain_hash", "attrs"}

// WriteCSV writes the journal as CSV with a fixed header row. Attrs are
// folded into a single JSON column so the row shape stays stable across
// event types.
func WriteCSV(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range events {
		e := &events[i]
		attrs := ""
		if len(e.Attrs) > 0 {
			b, err := json.Marshal(e.Attrs)
			if err != nil {
				return fmt.Errorf("encode attrs for event %d: %w", e.Seq, err)
			}
			attrs = string(b)
		}
		row := []string{
			strconv.FormatUint(e.Seq, 10),
			e.ID,
			string(e.Type),
			strconv.FormatUint(e.TokenID, 10),
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.PrevHash,
			e.ChainHash,
			attrs,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write event %d: %w", e.Seq, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
