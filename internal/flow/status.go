package flow

import (
	"encoding/json"
	"fmt"
)

// statusOutput mirrors `flow status --json`. Older Flow releases report
// locations as flat path/line/start fields; newer ones nest them under loc.
type statusOutput struct {
	Passed bool          `json:"passed"`
	Errors []statusError `json:"errors"`
	Exit   *statusExit   `json:"exit,omitempty"`
}

// statusExit is what Flow prints instead of a report when the server fails.
type statusExit struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type statusError struct {
	Kind      string          `json:"kind"`
	Level     string          `json:"level"`
	Message   []statusMessage `json:"message"`
	Operation *statusMessage  `json:"operation,omitempty"`
	Extra     []statusExtra   `json:"extra,omitempty"`
}

type statusExtra struct {
	Message  []statusMessage `json:"message"`
	Children []statusExtra   `json:"children,omitempty"`
}

type statusMessage struct {
	Descr   *string    `json:"descr,omitempty"`
	Path    string     `json:"path,omitempty"`
	Line    int        `json:"line,omitempty"`
	EndLine int        `json:"endline,omitempty"`
	Start   int        `json:"start,omitempty"`
	End     int        `json:"end,omitempty"`
	Loc     *statusLoc `json:"loc,omitempty"`
}

type statusLoc struct {
	Source string   `json:"source"`
	Start  Position `json:"start"`
	End    Position `json:"end"`
}

// ParseStatus decodes `flow status --json` output into a Report.
func ParseStatus(data []byte) (*Report, error) {
	var out statusOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}
	if out.Exit != nil && out.Errors == nil {
		return nil, fmt.Errorf("%w: flow exited with code %d: %s", ErrMalformedReport, out.Exit.Code, out.Exit.Msg)
	}
	report := &Report{
		Passed:   out.Passed,
		Messages: make([]Message, 0, len(out.Errors)),
	}
	for _, e := range out.Errors {
		report.Messages = append(report.Messages, convertStatusError(e))
	}
	return report, nil
}

func convertStatusError(e statusError) Message {
	msg := Message{Level: e.Level}
	if e.Operation != nil {
		msg.Components = append(msg.Components, convertStatusMessage(*e.Operation))
	}
	for _, m := range e.Message {
		msg.Components = append(msg.Components, convertStatusMessage(m))
	}
	msg.Components = appendExtra(msg.Components, e.Extra)
	return msg
}

func appendExtra(dst []MessageComponent, extra []statusExtra) []MessageComponent {
	for _, x := range extra {
		for _, m := range x.Message {
			dst = append(dst, convertStatusMessage(m))
		}
		dst = appendExtra(dst, x.Children)
	}
	return dst
}

func convertStatusMessage(m statusMessage) MessageComponent {
	comp := MessageComponent{Descr: m.Descr}
	switch {
	case m.Loc != nil && m.Loc.Source != "":
		comp.Range = &Range{
			File:  m.Loc.Source,
			Start: m.Loc.Start,
			End:   m.Loc.End,
		}
	case m.Path != "":
		comp.Range = &Range{
			File:  m.Path,
			Start: Position{Line: m.Line, Column: m.Start},
			End:   Position{Line: m.EndLine, Column: m.End},
		}
	}
	return comp
}
