package matrix

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/tOgg1/foldline/internal/logging"
)

// VirtualEventType marks a virtual timeline item inside a timeline document.
const VirtualEventType = "foldline.virtual"

const logSnippetLimit = 160

var errMissingType = errors.New("event has no type")

// Format identifies the encoding of a timeline document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a document format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Timeline is a decoded room timeline. Items[i] was decoded from Events[i].
type Timeline struct {
	RoomID string
	Events []json.RawMessage
	Items  []RawItem
}

// DecodeReport counts what a decode pass accepted and dropped.
type DecodeReport struct {
	Total   int
	Skipped int
}

type document struct {
	RoomID   string            `json:"room_id"`
	Timeline []json.RawMessage `json:"timeline"`
}

type wireUnsigned struct {
	PrevContent     map[string]any  `json:"prev_content"`
	RedactedBecause json.RawMessage `json:"redacted_because"`
}

type wireEvent struct {
	Type              string         `json:"type"`
	EventID           string         `json:"event_id"`
	Sender            string         `json:"sender"`
	SenderDisplayName string         `json:"sender_display_name"`
	StateKey          *string        `json:"state_key"`
	Content           map[string]any `json:"content"`
	Unsigned          wireUnsigned   `json:"unsigned"`
}

// SplitDocument normalizes a JSON or YAML timeline document into one raw JSON value per event.
// A document is either a bare list of events or an object with room_id and timeline fields.
// Entries that cannot be re-encoded are counted in skipped rather than failing the document.
func SplitDocument(data []byte, format Format) (roomID string, events []json.RawMessage, skipped int, err error) {
	if format == FormatYAML {
		return splitYAML(data)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", nil, 0, nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return "", nil, 0, fmt.Errorf("failed to parse timeline list: %w", err)
		}
		return "", events, 0, nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return "", nil, 0, fmt.Errorf("failed to parse timeline document: %w", err)
	}
	return doc.RoomID, doc.Timeline, 0, nil
}

func splitYAML(data []byte) (string, []json.RawMessage, int, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return "", nil, 0, fmt.Errorf("failed to parse timeline document: %w", err)
	}

	var roomID string
	var entries []any
	switch v := root.(type) {
	case nil:
		return "", nil, 0, nil
	case []any:
		entries = v
	case map[string]any:
		if id, ok := v["room_id"].(string); ok {
			roomID = id
		}
		list, ok := v["timeline"].([]any)
		if !ok && v["timeline"] != nil {
			return "", nil, 0, fmt.Errorf("timeline field must be a list")
		}
		entries = list
	default:
		return "", nil, 0, fmt.Errorf("unsupported timeline document shape %T", root)
	}

	events := make([]json.RawMessage, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		raw, err := json.Marshal(entry)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, raw)
	}
	return roomID, events, skipped, nil
}

// Decoder turns client-format events into RawItems. It tracks member display names as it goes,
// so later events can be attributed to the name their sender had at that point.
type Decoder struct {
	logger zerolog.Logger
	names  map[UserID]string
}

// NewDecoder creates a Decoder with an empty room state.
func NewDecoder() *Decoder {
	return &Decoder{
		logger: logging.Component("matrix-decoder"),
		names:  make(map[UserID]string),
	}
}

// Decode converts raws in order. Events that fail to decode are logged and skipped; the
// returned slices hold only accepted events and stay aligned with each other.
func (d *Decoder) Decode(raws []json.RawMessage) ([]RawItem, []json.RawMessage, DecodeReport) {
	report := DecodeReport{Total: len(raws)}
	items := make([]RawItem, 0, len(raws))
	kept := make([]json.RawMessage, 0, len(raws))

	for i, raw := range raws {
		item, err := d.decodeOne(raw)
		if err != nil {
			report.Skipped++
			d.logger.Warn().
				Err(err).
				Int("position", i).
				Str("raw", snippet(raw)).
				Msg("skipping undecodable timeline event")
			continue
		}
		items = append(items, item)
		kept = append(kept, raw)
	}
	return items, kept, report
}

// DecodeDocument splits and decodes a whole document.
func DecodeDocument(data []byte, format Format) (*Timeline, DecodeReport, error) {
	roomID, raws, skipped, err := SplitDocument(data, format)
	if err != nil {
		return nil, DecodeReport{}, err
	}
	items, kept, report := NewDecoder().Decode(raws)
	report.Total += skipped
	report.Skipped += skipped
	return &Timeline{RoomID: roomID, Events: kept, Items: items}, report, nil
}

func (d *Decoder) decodeOne(raw json.RawMessage) (RawItem, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return RawItem{}, fmt.Errorf("invalid event json: %w", err)
	}
	w.Type = strings.TrimSpace(w.Type)
	if w.Type == "" {
		return RawItem{}, errMissingType
	}

	if w.Type == VirtualEventType {
		kind := stringField(w.Content, "kind")
		if kind == "" {
			return RawItem{}, fmt.Errorf("virtual item has no kind")
		}
		return RawItem{Kind: ItemVirtual, Virtual: VirtualKind(kind)}, nil
	}

	sender, err := ParseUserID(w.Sender)
	if err != nil {
		return RawItem{}, err
	}
	item := RawItem{Kind: ItemEvent, Sender: sender}
	if w.EventID != "" {
		eventID, err := ParseEventID(w.EventID)
		if err != nil {
			return RawItem{}, err
		}
		item.EventID = eventID
	}
	item.SenderName = w.SenderDisplayName
	if item.SenderName == "" {
		item.SenderName = d.names[sender]
	}

	if w.StateKey != nil {
		item.StateKey = *w.StateKey
		content, err := d.decodeState(w, sender)
		if err != nil {
			return RawItem{}, err
		}
		item.Content = content
		return item, nil
	}

	item.Content = decodeMessageLike(w)
	return item, nil
}

func (d *Decoder) decodeState(w wireEvent, sender UserID) (Content, error) {
	switch w.Type {
	case "m.room.member":
		return d.decodeMember(w, sender)
	case "m.room.create":
		return &OtherState{Kind: StateRoomCreate, EventType: w.Type}, nil
	case "m.room.server_acl":
		return &OtherState{Kind: StateServerACL, EventType: w.Type}, nil
	}
	if !strings.HasPrefix(w.Type, "m.") {
		return &OtherState{Kind: StateCustom, EventType: w.Type}, nil
	}
	return &OtherState{Kind: StateOther, EventType: w.Type}, nil
}

func (d *Decoder) decodeMember(w wireEvent, sender UserID) (Content, error) {
	cur := stringField(w.Content, "membership")
	if cur == "" {
		return nil, fmt.Errorf("member event has no membership")
	}
	prev := stringField(w.Unsigned.PrevContent, "membership")

	// An unparseable state key still classifies; the grouping layer falls back to the sender.
	member, _ := ParseUserID(*w.StateKey)

	name := stringField(w.Content, "displayname")
	prevName := stringField(w.Unsigned.PrevContent, "displayname")
	if member != "" && cur == membershipJoin && name != "" {
		defer func() { d.names[member] = name }()
	}

	if prev == membershipJoin && cur == membershipJoin {
		return &ProfileChange{
			UserID:         member,
			DisplayName:    firstNonEmpty(name, prevName, d.names[member]),
			OldDisplayName: prevName,
			NameChanged:    name != prevName,
			AvatarChanged:  stringField(w.Content, "avatar_url") != stringField(w.Unsigned.PrevContent, "avatar_url"),
		}, nil
	}

	return &MembershipChange{
		Change:      diffMembership(prev, cur, member != "" && member == sender),
		UserID:      member,
		DisplayName: firstNonEmpty(name, prevName, d.names[member]),
	}, nil
}

func decodeMessageLike(w wireEvent) *MessageLike {
	msg := &MessageLike{EventType: w.Type}
	if redacted(w.Unsigned.RedactedBecause) {
		msg.Kind = MessageRedacted
		return msg
	}
	switch w.Type {
	case "m.room.message":
		if len(w.Content) == 0 {
			msg.Kind = MessageRedacted
		} else {
			msg.Kind = MessageText
		}
	case "m.room.encrypted":
		msg.Kind = MessageUndecryptable
	case "m.poll.start", "org.matrix.msc3381.poll.start":
		msg.Kind = MessagePoll
	case "m.reaction":
		msg.Kind = MessageReaction
	case "m.sticker":
		msg.Kind = MessageSticker
	default:
		msg.Kind = MessageOther
	}
	return msg
}

func redacted(because json.RawMessage) bool {
	trimmed := bytes.TrimSpace(because)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// snippet renders raw for a log line. Object events have sensitive fields masked by name
// before the text is truncated and scrubbed for token patterns.
func snippet(raw json.RawMessage) string {
	var obj map[string]any
	if json.Unmarshal(raw, &obj) == nil {
		if clean, err := json.Marshal(logging.RedactMap(obj)); err == nil {
			raw = clean
		}
	}
	s := string(raw)
	if len(s) > logSnippetLimit {
		s = s[:logSnippetLimit] + "..."
	}
	return logging.Redact(s)
}
