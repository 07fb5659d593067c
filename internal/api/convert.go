package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/intelligence-core/internal/models"
	"github.com/miradorstack/intelligence-core/internal/utils"
)

// QueryParams holds the raw query-signals arguments as received by a
// transport. Empty strings mean "not set".
type QueryParams struct {
	System string
	Start  string
	End    string
	Limit  string
	Offset string
	Sort   string
}

// ParseQuery validates raw arguments into a SignalQuery. Start and end form a
// time range only when both are present.
func ParseQuery(p QueryParams) (models.SignalQuery, error) {
	q := models.SignalQuery{System: strings.TrimSpace(p.System)}

	start, end := strings.TrimSpace(p.Start), strings.TrimSpace(p.End)
	if start != "" && end != "" {
		from, err := utils.ParseRFC3339(start)
		if err != nil {
			return models.SignalQuery{}, invalidQuery("start must be an RFC3339 timestamp", err)
		}
		to, err := utils.ParseRFC3339(end)
		if err != nil {
			return models.SignalQuery{}, invalidQuery("end must be an RFC3339 timestamp", err)
		}
		q.TimeRange = &models.TimeRange{Start: from, End: to}
	}

	var err error
	if q.Options.Limit, err = parseCount(p.Limit, "limit"); err != nil {
		return models.SignalQuery{}, err
	}
	if q.Options.Offset, err = parseCount(p.Offset, "offset"); err != nil {
		return models.SignalQuery{}, err
	}

	switch sort := models.SortOrder(strings.ToLower(strings.TrimSpace(p.Sort))); sort {
	case "":
	case models.SortAsc, models.SortDesc:
		q.Options.SortOrder = sort
	default:
		return models.SignalQuery{}, invalidQuery(fmt.Sprintf("sort must be %q or %q", models.SortAsc, models.SortDesc), nil)
	}
	return q, nil
}

// QueryToStruct encodes a SignalQuery for the QuerySignals RPC.
func QueryToStruct(q models.SignalQuery) (*structpb.Struct, error) {
	fields := map[string]any{}
	if q.System != "" {
		fields["system"] = q.System
	}
	if q.TimeRange != nil {
		fields["start"] = q.TimeRange.Start.Format(time.RFC3339Nano)
		fields["end"] = q.TimeRange.End.Format(time.RFC3339Nano)
	}
	if q.Options.Limit > 0 {
		fields["limit"] = q.Options.Limit
	}
	if q.Options.Offset > 0 {
		fields["offset"] = q.Options.Offset
	}
	if q.Options.SortOrder != "" {
		fields["sortOrder"] = string(q.Options.SortOrder)
	}
	return structpb.NewStruct(fields)
}

// QueryFromStruct decodes the QuerySignals RPC request.
func QueryFromStruct(s *structpb.Struct) (models.SignalQuery, error) {
	if s == nil {
		return models.SignalQuery{}, nil
	}
	fields := s.GetFields()
	return ParseQuery(QueryParams{
		System: stringField(fields, "system"),
		Start:  stringField(fields, "start"),
		End:    stringField(fields, "end"),
		Limit:  stringField(fields, "limit"),
		Offset: stringField(fields, "offset"),
		Sort:   stringField(fields, "sortOrder"),
	})
}

// ToStruct converts a JSON-object-shaped domain value into a Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	var fields map[string]any
	if err := roundTrip(v, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

// ToValue converts any JSON-encodable domain value into a Value.
func ToValue(v any) (*structpb.Value, error) {
	var generic any
	if err := roundTrip(v, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}

// DecodeStruct decodes a Struct into out through its JSON form.
func DecodeStruct(s *structpb.Struct, out any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	return json.Unmarshal(data, out)
}

// DecodeValue decodes a Value into out through its JSON form.
func DecodeValue(v *structpb.Value, out any) error {
	data, err := protojson.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	return json.Unmarshal(data, out)
}

func roundTrip(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %T: %w", in, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %T: %w", in, err)
	}
	return nil
}

func stringField(fields map[string]*structpb.Value, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
	default:
		return ""
	}
}

func parseCount(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalidQuery(name+" must be a non-negative integer", err)
	}
	return n, nil
}

func invalidQuery(msg string, err error) error {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return utils.NewAppError("parse query", msg, models.ErrInvalidQuery)
}
