package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivewatch/hivewatch/domain/category"
	"github.com/hivewatch/hivewatch/domain/keyword"
	"github.com/hivewatch/hivewatch/internal/config"
	"github.com/hivewatch/hivewatch/internal/database"
)

type fakeCategoryStore struct {
	byName map[string]category.Category
	nextID int64
}

func newFakeCategoryStore() *fakeCategoryStore {
	return &fakeCategoryStore{byName: make(map[string]category.Category), nextID: 1}
}

func (f *fakeCategoryStore) Save(_ context.Context, c category.Category) (category.Category, error) {
	if existing, ok := f.byName[c.Name()]; ok {
		return existing, nil
	}
	saved := c.WithID(f.nextID)
	f.nextID++
	f.byName[c.Name()] = saved
	return saved, nil
}

func (f *fakeCategoryStore) FindByName(_ context.Context, name string) (category.Category, error) {
	c, ok := f.byName[name]
	if !ok {
		return category.Category{}, database.ErrNotFound
	}
	return c, nil
}

func (f *fakeCategoryStore) FindAll(context.Context) ([]category.Category, error) {
	all := make([]category.Category, 0, len(f.byName))
	for _, c := range f.byName {
		all = append(all, c)
	}
	return all, nil
}

type fakeKeywordStore struct {
	keywords []keyword.Keyword
	nextID   int64
}

func newFakeKeywordStore() *fakeKeywordStore {
	return &fakeKeywordStore{nextID: 1}
}

func (f *fakeKeywordStore) SaveAll(_ context.Context, keywords []keyword.Keyword) ([]keyword.Keyword, error) {
	saved := make([]keyword.Keyword, 0, len(keywords))
	for _, k := range keywords {
		if existing, ok := f.find(k); ok {
			saved = append(saved, existing)
			continue
		}
		stored := k.WithID(f.nextID)
		f.nextID++
		f.keywords = append(f.keywords, stored)
		saved = append(saved, stored)
	}
	return saved, nil
}

func (f *fakeKeywordStore) find(k keyword.Keyword) (keyword.Keyword, bool) {
	for _, existing := range f.keywords {
		if existing.CategoryID() == k.CategoryID() &&
			existing.Text() == k.Text() &&
			existing.Language() == k.Language() {
			return existing, true
		}
	}
	return keyword.Keyword{}, false
}

func (f *fakeKeywordStore) FindByCategory(_ context.Context, categoryID int64) ([]keyword.Keyword, error) {
	var found []keyword.Keyword
	for _, k := range f.keywords {
		if k.CategoryID() == categoryID {
			found = append(found, k)
		}
	}
	return found, nil
}

type fakeGenerator struct {
	terms []string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateKeywords(context.Context, string, string, int) ([]string, error) {
	f.calls++
	return f.terms, f.err
}

func TestKeywords_GeneratesExpandsAndPersists(t *testing.T) {
	categories := newFakeCategoryStore()
	keywords := newFakeKeywordStore()
	gen := &fakeGenerator{terms: []string{"Flood", "heat wave"}}

	s := NewKeywords(categories, keywords, gen, testLogger())
	prepared, err := s.Prepare(context.Background(), []config.CategorySpec{
		{Name: "climate", Language: "en"},
	})
	require.NoError(t, err)
	require.Len(t, prepared, 1)

	pc := prepared[0]
	assert.False(t, pc.Degraded)
	texts := make([]string, len(pc.Keywords))
	for i, k := range pc.Keywords {
		texts[i] = k.Text()
		assert.NotZero(t, k.ID())
		assert.Equal(t, pc.Category.ID(), k.CategoryID())
	}
	assert.ElementsMatch(t, []string{"flood", "floods", "heat wave", "heat waves"}, texts)
}

func TestKeywords_ReusesStoredKeywords(t *testing.T) {
	categories := newFakeCategoryStore()
	keywords := newFakeKeywordStore()
	gen := &fakeGenerator{terms: []string{"flood"}}
	s := NewKeywords(categories, keywords, gen, testLogger())

	spec := config.CategorySpec{Name: "climate", Language: "en"}
	first, err := s.Prepare(context.Background(), []config.CategorySpec{spec})
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)

	second, err := s.Prepare(context.Background(), []config.CategorySpec{spec})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls, "stored keywords are reused without regenerating")
	assert.Equal(t, len(first[0].Keywords), len(second[0].Keywords))
}

func TestKeywords_GenerationFailureDegradesCategory(t *testing.T) {
	categories := newFakeCategoryStore()
	keywords := newFakeKeywordStore()
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	s := NewKeywords(categories, keywords, gen, testLogger())

	prepared, err := s.Prepare(context.Background(), []config.CategorySpec{
		{Name: "climate", Language: "en"},
	})
	require.NoError(t, err, "generation failure must not fail the run")
	assert.True(t, prepared[0].Degraded)
	assert.Empty(t, prepared[0].Keywords)
}

func TestKeywords_UnsupportedLanguageRunsDegraded(t *testing.T) {
	categories := newFakeCategoryStore()
	keywords := newFakeKeywordStore()
	gen := &fakeGenerator{terms: []string{"Hochwasser"}}
	s := NewKeywords(categories, keywords, gen, testLogger())

	prepared, err := s.Prepare(context.Background(), []config.CategorySpec{
		{Name: "klima", Language: "de"},
	})
	require.NoError(t, err)
	assert.True(t, prepared[0].Degraded)
	require.Len(t, prepared[0].Keywords, 1, "terms kept without morphological variants")
	assert.Equal(t, "hochwasser", prepared[0].Keywords[0].Text())
}

func TestKeywords_CapsKeywordCount(t *testing.T) {
	categories := newFakeCategoryStore()
	keywords := newFakeKeywordStore()
	gen := &fakeGenerator{terms: []string{"flood", "storm", "drought", "heatwave", "wildfire"}}
	s := NewKeywords(categories, keywords, gen, testLogger())

	prepared, err := s.Prepare(context.Background(), []config.CategorySpec{
		{Name: "climate", Language: "en", MaxKeywords: 3},
	})
	require.NoError(t, err)
	assert.Len(t, prepared[0].Keywords, 3)
}

func TestTasks(t *testing.T) {
	cat := category.NewCategory("climate", "en").WithID(1)
	prepared := []PreparedCategory{
		{
			Category: cat,
			Keywords: []keyword.Keyword{
				keyword.NewKeyword(1, "flood", "en").WithID(1),
				keyword.NewKeyword(1, "storm", "en").WithID(2),
			},
		},
		{Category: category.NewCategory("health", "en").WithID(2)},
	}
	tasks := Tasks(prepared)
	require.Len(t, tasks, 2, "categories without keywords produce no tasks")
	assert.Equal(t, "flood", tasks[0].Keyword().Text())
	assert.Equal(t, "climate", tasks[0].Category().Name())
}
