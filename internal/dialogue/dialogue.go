// Package dialogue loads the dialogue corpus and answers topic, page and
// lookup queries over it.
package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrDataLoad is returned when corpus files cannot be read or decoded.
	ErrDataLoad = errors.New("failed to load dialogue data")
	// ErrNotFound is returned when a dialogue id is unknown.
	ErrNotFound = errors.New("dialogue not found")
)

// Page size limits for ByTopic.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Utterance is a single turn in a dialogue.
type Utterance struct {
	TurnNum   uint32 `json:"turn_num"`
	Speaker   string `json:"speaker"`
	Utterance string `json:"utterance"`
}

// Dialogue is a complete exchange between speakers.
type Dialogue struct {
	TopicID        uint32      `json:"topic_id"`
	TopicName      string      `json:"topic_name"`
	DialogueID     uint32      `json:"dialogue_id"`
	DialogueLength uint32      `json:"dialogue_length"`
	Utterances     []Utterance `json:"utterances"`
}

// TopicSummary describes a topic without its dialogues.
type TopicSummary struct {
	TopicID       uint32 `json:"topic_id"`
	TopicName     string `json:"topic_name"`
	DialogueCount int    `json:"dialogue_count"`
}

// Page is one page of dialogues for a topic.
type Page struct {
	Dialogues  []Dialogue `json:"dialogues"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	TotalPages int        `json:"total_pages"`
}

// Store is an immutable, in-memory corpus. It is safe for concurrent use.
type Store struct {
	dialogues []Dialogue
	byID      map[uint32]int
}

// Decode reads a JSON array of dialogues.
func Decode(r io.Reader) ([]Dialogue, error) {
	var out []Dialogue
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataLoad, err)
	}
	return out, nil
}

// Load reads every *.json file in dir, in file name order.
func Load(dir string) (*Store, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataLoad, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no *.json files in %s", ErrDataLoad, dir)
	}
	sort.Strings(paths)

	var all []Dialogue
	for _, p := range paths {
		f, err := os.Open(p) // #nosec G304 -- corpus directory comes from operator config.
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataLoad, err)
		}
		ds, err := Decode(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		all = append(all, ds...)
	}

	return NewStore(all), nil
}

// NewStore indexes dialogues. When ids repeat, the first occurrence wins.
func NewStore(dialogues []Dialogue) *Store {
	s := &Store{
		dialogues: append([]Dialogue(nil), dialogues...),
		byID:      make(map[uint32]int, len(dialogues)),
	}
	for i, d := range s.dialogues {
		if _, ok := s.byID[d.DialogueID]; !ok {
			s.byID[d.DialogueID] = i
		}
	}
	return s
}

// Len returns the number of dialogues in the store.
func (s *Store) Len() int { return len(s.dialogues) }

// Topics returns one summary per topic, sorted by topic id.
func (s *Store) Topics() []TopicSummary {
	var topics []TopicSummary
	index := map[uint32]int{}
	for _, d := range s.dialogues {
		if i, ok := index[d.TopicID]; ok {
			topics[i].DialogueCount++
			continue
		}
		index[d.TopicID] = len(topics)
		topics = append(topics, TopicSummary{TopicID: d.TopicID, TopicName: d.TopicName, DialogueCount: 1})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].TopicID < topics[j].TopicID })
	return topics
}

// ByTopic returns a page of the topic's dialogues, optionally restricted to
// those with an utterance containing search. perPage 0 selects
// DefaultPerPage and larger values are capped at MaxPerPage; page is
// clamped to the last page.
func (s *Store) ByTopic(topicID uint32, page, perPage int, search string) Page {
	switch {
	case perPage <= 0:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}

	var filtered []Dialogue
	for _, d := range s.dialogues {
		if d.TopicID == topicID && matches(d, search) {
			filtered = append(filtered, d)
		}
	}

	total := len(filtered)
	totalPages := (total + perPage - 1) / perPage
	page = max(min(page, totalPages-1), 0)

	start := min(page*perPage, total)
	end := min(start+perPage, total)

	return Page{
		Dialogues:  append([]Dialogue{}, filtered[start:end]...),
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
}

// Get returns the dialogue with the given id.
func (s *Store) Get(id uint32) (Dialogue, error) {
	i, ok := s.byID[id]
	if !ok {
		return Dialogue{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.dialogues[i], nil
}

func matches(d Dialogue, search string) bool {
	if search == "" {
		return true
	}
	for _, u := range d.Utterances {
		if strings.Contains(u.Utterance, search) {
			return true
		}
	}
	return false
}

// TopicNameJa returns the Japanese name of a corpus topic, or name itself
// when there is no translation.
func TopicNameJa(name string) string {
	switch name {
	case "Dailylife":
		return "日常生活"
	case "School":
		return "学校"
	case "Travel":
		return "旅行"
	case "Health":
		return "健康"
	case "Entertainment":
		return "エンターテインメント"
	default:
		return name
	}
}
