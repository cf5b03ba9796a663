package session

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/CVO-TreeAi/terminote/internal/core/models"
)

// Filters represents parsed filters from a search query
type Filters struct {
	Query     string    // The actual search text
	After     time.Time // Only sessions modified after this time
	Before    time.Time // Only sessions modified before this time
	HasAfter  bool
	HasBefore bool
}

// ParseQuery extracts filters from a search query string
// Supports:
//   - after:yesterday, after:2025-06-01 - sessions modified since
//   - before:last-week - sessions modified earlier than
//
// Everything else is matched as text against name, content, and metadata.
func ParseQuery(query string) Filters {
	filters := Filters{}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	var queryParts []string
	for _, token := range strings.Fields(query) {
		if strings.HasPrefix(token, "after:") {
			if parsed := parseDate(w, strings.TrimPrefix(token, "after:")); parsed != nil {
				filters.After = *parsed
				filters.HasAfter = true
			}
			continue
		}
		if strings.HasPrefix(token, "before:") {
			if parsed := parseDate(w, strings.TrimPrefix(token, "before:")); parsed != nil {
				filters.Before = *parsed
				filters.HasBefore = true
			}
			continue
		}
		queryParts = append(queryParts, token)
	}

	filters.Query = strings.Join(queryParts, " ")
	return filters
}

// parseDate attempts natural language first, then standard formats
func parseDate(w *when.Parser, dateStr string) *time.Time {
	normalized := strings.ReplaceAll(dateStr, "-", " ")
	if result, err := w.Parse(normalized, time.Now()); err == nil && result != nil {
		return &result.Time
	}

	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return &t
		}
	}
	return nil
}

// Search returns sessions whose name, content, or metadata match the
// query text, restricted by any after:/before: filters. Results come
// back most recently modified first.
func (m *Manager) Search(query string) ([]models.SessionInfo, error) {
	filters := ParseQuery(query)
	needle := strings.ToLower(filters.Query)

	infos, err := m.List()
	if err != nil {
		return nil, err
	}

	var matched []models.SessionInfo
	for _, info := range infos {
		if filters.HasAfter && info.LastModified.Before(filters.After) {
			continue
		}
		if filters.HasBefore && info.LastModified.After(filters.Before) {
			continue
		}
		if needle != "" && !m.matches(info.Name, needle) {
			continue
		}
		matched = append(matched, info)
	}
	return matched, nil
}

func (m *Manager) matches(name, needle string) bool {
	sess, ok := m.peek(name)
	if !ok {
		return false
	}
	haystack := strings.ToLower(strings.Join(append([]string{
		sess.Name,
		sess.Content,
		sess.Metadata.Notes,
		sess.Metadata.Project,
	}, sess.Metadata.Tags...), " "))
	return strings.Contains(haystack, needle)
}

// Stats aggregates the persisted sessions
type Stats struct {
	Sessions     int
	TotalWords   int
	Largest      string
	LargestWords int
	Oldest       time.Time
	Newest       time.Time
}

// Stats walks every persisted session and aggregates counts
func (m *Manager) Stats() (Stats, error) {
	infos, err := m.List()
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	st.Sessions = len(infos)
	for _, info := range infos {
		st.TotalWords += info.WordCount
		if info.WordCount >= st.LargestWords && info.Name != "" {
			st.Largest = info.Name
			st.LargestWords = info.WordCount
		}
		if st.Oldest.IsZero() || info.Created.Before(st.Oldest) {
			st.Oldest = info.Created
		}
		if info.LastModified.After(st.Newest) {
			st.Newest = info.LastModified
		}
	}
	return st, nil
}
