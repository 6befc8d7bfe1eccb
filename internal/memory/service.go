package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Strongman1380/myassistant/internal/apperr"
	"github.com/Strongman1380/myassistant/internal/llm"
)

// Completer is the slice of the LLM gateway the memory service needs.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userMessage string, out any) error
}

type Service struct {
	DB     *gorm.DB
	LLM    Completer
	Logger *zap.Logger
}

// classification is what the model returns for a raw note.
type classification struct {
	Content         string   `json:"content"`
	Category        string   `json:"category"`
	MemoryType      string   `json:"memory_type"`
	ImportanceLevel string   `json:"importance_level"`
	Tags            []string `json:"tags"`
	RelatedEntities []string `json:"related_entities"`
	Context         string   `json:"context"`
}

// Add classifies rawInput through the LLM, inserts the memory as active
// and returns the stored row plus a count of all memories. The count has
// no activity filter; soft-deleted rows are included, matching the
// behavior the clients were built against.
func (s *Service) Add(ctx context.Context, rawInput string) (*Memory, int64, error) {
	rawInput = strings.TrimSpace(rawInput)
	if rawInput == "" {
		return nil, 0, apperr.Validation("Missing rawInput")
	}

	raw, err := s.LLM.Complete(ctx, llm.MemoryClassifyPrompt, rawInput)
	if err != nil {
		return nil, 0, err
	}

	var cls classification
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &cls); err != nil {
		s.Logger.Error("failed to parse classification", zap.String("raw", raw), zap.Error(err))
		return nil, 0, apperr.Wrap(apperr.KindMalformedResponse, "AI returned invalid JSON format", err)
	}
	if cls.Content == "" {
		cls.Content = rawInput
	}
	if cls.Category == "" {
		cls.Category = DefaultCategory
	}
	if cls.MemoryType == "" {
		cls.MemoryType = DefaultType
	}
	if cls.ImportanceLevel == "" {
		cls.ImportanceLevel = DefaultImportance
	}
	if cls.Tags == nil {
		cls.Tags = []string{}
	}
	if cls.RelatedEntities == nil {
		cls.RelatedEntities = []string{}
	}

	m := Memory{
		ID:              uuid.NewString(),
		Content:         cls.Content,
		RawInput:        rawInput,
		Category:        cls.Category,
		MemoryType:      cls.MemoryType,
		ImportanceLevel: cls.ImportanceLevel,
		Tags:            pq.StringArray(cls.Tags),
		RelatedEntities: pq.StringArray(cls.RelatedEntities),
		IsActive:        true,
		CreatedAt:       time.Now(),
	}
	if c := strings.TrimSpace(cls.Context); c != "" {
		m.Context = &c
	}

	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindStorage, "Failed to save memory to database", err)
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&Memory{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindStorage, "Failed to count memories", err)
	}
	return &m, total, nil
}

// Filter narrows List results. Provided fields combine with AND.
type Filter struct {
	Category   string
	Importance string
	Tag        string
}

// List returns active memories matching the filter, newest first. The tag
// predicate runs in application code so the same query works on Postgres
// and the sqlite test database.
func (s *Service) List(ctx context.Context, f Filter) ([]Memory, error) {
	q := s.DB.WithContext(ctx).Where("is_active = ?", true)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Importance != "" {
		q = q.Where("importance_level = ?", f.Importance)
	}

	var rows []Memory
	if err := q.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "Failed to load memories from database", err)
	}
	if f.Tag == "" {
		return rows, nil
	}

	out := rows[:0]
	for _, m := range rows {
		if m.HasTag(f.Tag) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Categories returns a frequency map of categories over active memories.
func (s *Service) Categories(ctx context.Context) (map[string]int, error) {
	rows, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, m := range rows {
		cat := m.Category
		if cat == "" {
			cat = DefaultCategory
		}
		counts[cat]++
	}
	return counts, nil
}

// TagCounts returns a frequency map of tags over active memories.
func (s *Service) TagCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, m := range rows {
		for _, t := range m.Tags {
			counts[t]++
		}
	}
	return counts, nil
}

// SearchNaive is the fallback strategy: case-insensitive substring match
// on content.
func (s *Service) SearchNaive(ctx context.Context, query string) ([]Memory, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("Missing query")
	}
	var rows []Memory
	err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Where("lower(content) LIKE ?", "%"+strings.ToLower(query)+"%").
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "Failed to search memories", err)
	}
	return rows, nil
}

// SearchResult is the outcome of the LLM-ranked search.
type SearchResult struct {
	Results     []Memory
	Explanation string
}

type searchRanking struct {
	RelevantIndices []int  `json:"relevantIndices"`
	Explanation     string `json:"explanation"`
}

// Search sends every active memory with the query to the LLM and keeps
// the rows whose indices come back. Out-of-range indices are dropped
// silently; the model is not trusted to count.
func (s *Service) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("Missing query")
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return &SearchResult{Results: []Memory{}, Explanation: "No memories found in database"}, nil
	}

	lines := make([]string, len(all))
	for i, m := range all {
		tags := "none"
		if len(m.Tags) > 0 {
			tags = strings.Join(m.Tags, ", ")
		}
		lines[i] = fmt.Sprintf("[%d] %s (Category: %s, Tags: %s)", i, m.Content, m.Category, tags)
	}

	var ranking searchRanking
	if err := s.LLM.CompleteJSON(ctx, llm.SearchRankPrompt(lines), query, &ranking); err != nil {
		return nil, err
	}

	results := make([]Memory, 0, len(ranking.RelevantIndices))
	for _, idx := range ranking.RelevantIndices {
		if idx < 0 || idx >= len(all) {
			continue
		}
		results = append(results, all[idx])
	}
	return &SearchResult{Results: results, Explanation: ranking.Explanation}, nil
}

// Delete soft-deletes: the row stays, is_active flips false and
// deleted_at is stamped. An id that matches nothing still reports
// success; the row count is not checked, which is the contract the
// clients were built against.
func (s *Service) Delete(ctx context.Context, id string) (time.Time, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return time.Time{}, apperr.Validation("Missing memory id")
	}

	deletedAt := time.Now()
	err := s.DB.WithContext(ctx).Model(&Memory{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "deleted_at": deletedAt}).Error
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.KindStorage, "Failed to delete memory", err)
	}
	return deletedAt, nil
}

// Clear hard-deletes every row, active or not.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Where("1 = 1").Delete(&Memory{})
	if res.Error != nil {
		return 0, apperr.Wrap(apperr.KindStorage, "Failed to clear memories", res.Error)
	}
	return res.RowsAffected, nil
}
