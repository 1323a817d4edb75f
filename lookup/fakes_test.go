package lookup

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/giygas/medlookup-api/data"
	"github.com/giygas/medlookup-api/entities"
)

var errUpstream = errors.New("upstream unavailable")

// fakeVocabulary is a scriptable VocabularyClient that counts calls
type fakeVocabulary struct {
	conceptID    string
	conceptErr   error
	properties   *entities.ConceptProperties
	propsErr     error
	groups       []entities.ConceptGroup
	groupsErr    error
	interactions []entities.InteractionGroup
	interErr     error
	hang         map[string]bool // stage names whose call blocks until ctx is done

	conceptCalls     atomic.Int32
	propertiesCalls  atomic.Int32
	groupsCalls      atomic.Int32
	interactionCalls atomic.Int32
}

func (f *fakeVocabulary) wait(ctx context.Context, stage string) error {
	if f.hang[stage] {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeVocabulary) FindConceptID(ctx context.Context, name string) (string, error) {
	f.conceptCalls.Add(1)
	if err := f.wait(ctx, stageIdentity); err != nil {
		return "", err
	}
	return f.conceptID, f.conceptErr
}

func (f *fakeVocabulary) GetProperties(ctx context.Context, id string) (*entities.ConceptProperties, error) {
	f.propertiesCalls.Add(1)
	if err := f.wait(ctx, stageProperties); err != nil {
		return nil, err
	}
	return f.properties, f.propsErr
}

func (f *fakeVocabulary) GetDrugGroups(ctx context.Context, name string) ([]entities.ConceptGroup, error) {
	f.groupsCalls.Add(1)
	if err := f.wait(ctx, stageSynonyms); err != nil {
		return nil, err
	}
	return f.groups, f.groupsErr
}

func (f *fakeVocabulary) GetInteractions(ctx context.Context, id string) ([]entities.InteractionGroup, error) {
	f.interactionCalls.Add(1)
	if err := f.wait(ctx, stageInteractions); err != nil {
		return nil, err
	}
	return f.interactions, f.interErr
}

func (f *fakeVocabulary) totalCalls() int32 {
	return f.conceptCalls.Load() + f.propertiesCalls.Load() + f.groupsCalls.Load() + f.interactionCalls.Load()
}

// fakeLabels is a scriptable LabelClient
type fakeLabels struct {
	label *entities.DrugLabel
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeLabels) FindLabel(ctx context.Context, name string) (*entities.DrugLabel, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.label, f.err
}

func groups(names ...[]string) []entities.ConceptGroup {
	out := make([]entities.ConceptGroup, 0, len(names))
	for _, group := range names {
		g := entities.ConceptGroup{Tty: "SBD"}
		for _, n := range group {
			g.ConceptProperties = append(g.ConceptProperties, entities.ConceptProperties{Name: n})
		}
		out = append(out, g)
	}
	return out
}

func newTestService(vocab *fakeVocabulary, labels *fakeLabels) *Service {
	return NewService(vocab, labels, data.NewDataContainer(), nil, Options{
		StageTimeout: 200 * time.Millisecond,
	})
}
