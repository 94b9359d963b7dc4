package figure

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/talkwith/talkwith/internal/questions"
	"github.com/talkwith/talkwith/internal/storage"
)

type mockStore struct {
	mu      sync.Mutex
	figures map[string]storage.Figure
	saveErr error
}

func newMockStore() *mockStore {
	return &mockStore{figures: make(map[string]storage.Figure)}
}

func (m *mockStore) GetFigure(nameKey string) (storage.Figure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.figures[nameKey]
	if !ok {
		return storage.Figure{}, storage.ErrNotFound
	}
	return f, nil
}

func (m *mockStore) SaveFigure(f storage.Figure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.figures[f.NameKey]; ok {
		return storage.ErrExists
	}
	m.figures[f.NameKey] = f
	return nil
}

func (m *mockStore) SetVoiceSummary(nameKey, voiceSummary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.figures[nameKey]
	if !ok {
		return storage.ErrNotFound
	}
	f.VoiceSummary = voiceSummary
	m.figures[nameKey] = f
	return nil
}

type mockQuerier struct {
	calls atomic.Int64
	reply func(prompt string) (string, error)
}

func (m *mockQuerier) Generate(_ context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	return m.reply(prompt)
}

func localSummary(_ context.Context, _ string, answers map[string]string, _ string) (string, error) {
	if answers[questions.VoiceSound] != "" {
		return answers[questions.VoiceSound], nil
	}
	return "Voice characteristics not documented in historical records.", nil
}

var testQs = []string{questions.FullName, questions.VoiceSound, questions.KnownFor}

func profileReply(string) (string, error) {
	return "Q1: Nikola Tesla, known to some contemporaries simply as the wizard for his showmanship.\n" +
		"Q2: A thin, reedy voice with a pronounced Serbian accent and rapid delivery when excited.\n" +
		"Q3: Pioneering alternating current power systems and high-frequency electrical research.", nil
}

func TestGetOrCreateCreatesOnce(t *testing.T) {
	store := newMockStore()
	llm := &mockQuerier{reply: profileReply}
	o := New(store, llm, testQs, localSummary, nil)

	f1, err := o.GetOrCreate(context.Background(), "  Nikola Tesla ")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if f1.NameKey != "nikola tesla" {
		t.Errorf("NameKey = %q", f1.NameKey)
	}
	if f1.Name != "Nikola Tesla" {
		t.Errorf("Name = %q", f1.Name)
	}
	if !strings.Contains(f1.VoiceSummary, "reedy voice") {
		t.Errorf("VoiceSummary = %q", f1.VoiceSummary)
	}
	if f1.ID == "" {
		t.Error("ID not assigned")
	}

	f2, err := o.GetOrCreate(context.Background(), "NIKOLA TESLA")
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if f2.ID != f1.ID {
		t.Error("second call created a new record")
	}
	if got := llm.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestGetOrCreateConcurrentSingleUpstreamCall(t *testing.T) {
	store := newMockStore()
	release := make(chan struct{})
	llm := &mockQuerier{reply: func(string) (string, error) {
		<-release
		return profileReply("")
	}}
	o := New(store, llm, testQs, localSummary, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.GetOrCreate(context.Background(), "Nikola Tesla"); err != nil {
				t.Errorf("GetOrCreate: %v", err)
			}
		}()
	}
	close(release)
	wg.Wait()

	if got := llm.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestGetOrCreateBackfillsVoiceSummary(t *testing.T) {
	store := newMockStore()
	store.figures["ada lovelace"] = storage.Figure{
		ID:      "fig-ada",
		Name:    "Ada Lovelace",
		NameKey: "ada lovelace",
		Answers: map[string]string{questions.VoiceSound: "A refined, precise voice."},
	}
	llm := &mockQuerier{reply: profileReply}
	o := New(store, llm, testQs, localSummary, nil)

	f, err := o.GetOrCreate(context.Background(), "Ada Lovelace")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if f.VoiceSummary != "A refined, precise voice." {
		t.Errorf("VoiceSummary = %q", f.VoiceSummary)
	}
	if got := llm.calls.Load(); got != 0 {
		t.Errorf("backfill made %d upstream calls, want 0", got)
	}
	if stored := store.figures["ada lovelace"]; stored.VoiceSummary == "" {
		t.Error("backfilled summary not persisted")
	}
}

func TestGetOrCreateNotConfigured(t *testing.T) {
	o := New(newMockStore(), nil, testQs, localSummary, nil)
	if _, err := o.GetOrCreate(context.Background(), "Nikola Tesla"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestGetOrCreateEmptyName(t *testing.T) {
	o := New(newMockStore(), nil, testQs, localSummary, nil)
	if _, err := o.GetOrCreate(context.Background(), "   "); !errors.Is(err, ErrInvalidName) {
		t.Errorf("err = %v, want ErrInvalidName", err)
	}
}

func TestGetOrCreateUpstreamFailurePersistsNothing(t *testing.T) {
	store := newMockStore()
	llm := &mockQuerier{reply: func(string) (string, error) { return "", errors.New("quota exhausted") }}
	o := New(store, llm, testQs, localSummary, nil)

	if _, err := o.GetOrCreate(context.Background(), "Nikola Tesla"); err == nil {
		t.Fatal("want error")
	}
	if len(store.figures) != 0 {
		t.Errorf("partial figure persisted: %v", store.figures)
	}
}

func TestGetOrCreateInsertRaceFallsBackToRead(t *testing.T) {
	store := newMockStore()
	winner := storage.Figure{ID: "fig-winner", Name: "Nikola Tesla", NameKey: "nikola tesla", VoiceSummary: "v"}
	llm := &mockQuerier{reply: func(string) (string, error) {
		// Another process wins the insert while we are still querying.
		store.mu.Lock()
		store.figures["nikola tesla"] = winner
		store.mu.Unlock()
		return profileReply("")
	}}
	o := New(store, llm, testQs, localSummary, nil)

	f, err := o.GetOrCreate(context.Background(), "Nikola Tesla")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if f.ID != "fig-winner" {
		t.Errorf("got %q, want the winner's record", f.ID)
	}
}

type flakyIndexer struct {
	calls int
	err   error
}

func (f *flakyIndexer) IndexFigure(context.Context, storage.Figure) error {
	f.calls++
	return f.err
}

func TestGetOrCreateIndexingIsBestEffort(t *testing.T) {
	store := newMockStore()
	llm := &mockQuerier{reply: profileReply}
	idx := &flakyIndexer{err: errors.New("embedder down")}
	o := New(store, llm, testQs, localSummary, idx)

	if _, err := o.GetOrCreate(context.Background(), "Nikola Tesla"); err != nil {
		t.Fatalf("indexing failure must not fail creation: %v", err)
	}
	if idx.calls != 1 {
		t.Errorf("indexer calls = %d, want 1", idx.calls)
	}
}
