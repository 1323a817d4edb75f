package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/giygas/medlookup-api/cache"
	"github.com/giygas/medlookup-api/data"
	"github.com/giygas/medlookup-api/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupMetforminHealthy(t *testing.T) {
	vocab := &fakeVocabulary{
		conceptID:  "6809",
		properties: &entities.ConceptProperties{Rxcui: "6809", Name: "metformin", Tty: "IN"},
		groups: groups(
			[]string{"metformin hydrochloride 500 MG Oral Tablet", "Glucophage"},
			[]string{"Glucophage", "metformin hydrochloride 850 MG Oral Tablet"},
		),
		interactions: []entities.InteractionGroup{{SourceName: "DrugBank"}},
	}
	labels := &fakeLabels{label: &entities.DrugLabel{
		IndicationsAndUsage: []string{"Metformin is indicated as an adjunct to diet and exercise."},
		Purpose:             []string{"ignored"},
	}}

	outcome, err := newTestService(vocab, labels).Lookup(context.Background(), "  Metformin ")
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, entities.StatusResolved, outcome.Status)
	assert.Empty(t, outcome.Message)
	assert.Equal(t, "metformin", outcome.Query)

	result := outcome.Result
	assert.Equal(t, "6809", result.ConceptID)
	assert.Equal(t, "metformin", result.Properties.CanonicalName)
	assert.Equal(t, "IN", result.Properties.FormType)
	assert.Equal(t, "Metformin is indicated as an adjunct to diet and exercise.", result.Usage)
	assert.Equal(t,
		"metformin hydrochloride 500 MG Oral Tablet, Glucophage, metformin hydrochloride 850 MG Oral Tablet",
		result.Synonyms.String())
	assert.NotEmpty(t, result.Interactions)
}

func TestLookupRejectsEmptyQuery(t *testing.T) {
	for _, query := range []string{"", "   ", "\t\n"} {
		vocab := &fakeVocabulary{conceptID: "1"}
		labels := &fakeLabels{}

		outcome, err := newTestService(vocab, labels).Lookup(context.Background(), query)
		assert.ErrorIs(t, err, ErrEmptyQuery)
		assert.Nil(t, outcome)
		assert.Zero(t, vocab.totalCalls(), "no vocabulary call for %q", query)
		assert.Zero(t, labels.calls.Load(), "no label call for %q", query)
	}
}

func TestLookupNotFound(t *testing.T) {
	vocab := &fakeVocabulary{groups: groups([]string{"Something"})}
	labels := &fakeLabels{}

	outcome, err := newTestService(vocab, labels).Lookup(context.Background(), "xyzdrug123")
	require.NoError(t, err)

	assert.Equal(t, entities.StatusNotFound, outcome.Status)
	assert.Equal(t, MsgNotFound, outcome.Message)
	assert.Zero(t, vocab.propertiesCalls.Load(), "properties need a concept id")
	assert.Zero(t, vocab.interactionCalls.Load(), "interactions need a concept id")
	assert.Equal(t, int32(1), vocab.groupsCalls.Load())
	assert.Equal(t, int32(1), labels.calls.Load())

	// identifier-independent stages still contribute a partial answer
	assert.Equal(t, "Something", outcome.Result.Synonyms.String())
	assert.Equal(t, entities.UsageNotAvailable, outcome.Result.Usage)
	assert.Empty(t, outcome.Result.ConceptID)
	assert.NotNil(t, outcome.Result.Interactions)
}

func TestLookupNotFoundKeepsLocalUsage(t *testing.T) {
	vocab := &fakeVocabulary{}
	outcome, err := newTestService(vocab, &fakeLabels{}).Lookup(context.Background(), "Omeprazole")
	require.NoError(t, err)

	assert.Equal(t, entities.StatusNotFound, outcome.Status)
	assert.Equal(t, "Treats acid reflux, ulcers, and GERD.", outcome.Result.Usage)
}

func TestLookupIdentityFailure(t *testing.T) {
	vocab := &fakeVocabulary{
		conceptErr: errUpstream,
		groups:     groups([]string{"Advil"}),
	}
	labels := &fakeLabels{label: &entities.DrugLabel{Purpose: []string{"Pain reliever"}}}

	outcome, err := newTestService(vocab, labels).Lookup(context.Background(), "ibuprofen")
	require.NoError(t, err)

	assert.Equal(t, entities.StatusLookupFailed, outcome.Status)
	assert.Equal(t, MsgLookupFailed, outcome.Message)
	assert.Contains(t, outcome.Reason, "upstream unavailable")
	assert.Zero(t, vocab.propertiesCalls.Load())
	assert.Zero(t, vocab.interactionCalls.Load())

	// the record is the default record, not a partial one
	assert.Equal(t, entities.NotAvailable, outcome.Result.Synonyms.String())
	assert.Equal(t, entities.UsageNotAvailable, outcome.Result.Usage)
	assert.Equal(t, entities.DefaultDrugProperties(), outcome.Result.Properties)
}

func TestLookupIdentityFailureCancelsIndependentStages(t *testing.T) {
	vocab := &fakeVocabulary{
		conceptErr: errUpstream,
		hang:       map[string]bool{stageSynonyms: true},
	}
	labels := &fakeLabels{delay: time.Hour}

	service := NewService(vocab, labels, data.NewDataContainer(), nil, Options{StageTimeout: time.Minute})

	start := time.Now()
	outcome, err := service.Lookup(context.Background(), "ibuprofen")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusLookupFailed, outcome.Status)
	assert.Less(t, time.Since(start), 5*time.Second, "in-flight stages must be cancelled")
}

func TestLookupUsageFallbackOrder(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		labels   *fakeLabels
		expected string
		message  string
	}{
		{
			name:     "label without usable fields falls back to the local table",
			query:    "ibuprofen",
			labels:   &fakeLabels{label: &entities.DrugLabel{IndicationsAndUsage: []string{"  "}}},
			expected: "Used to reduce fever and relieve pain or inflammation.",
		},
		{
			name:     "no label falls back to the local table",
			query:    "ibuprofen",
			labels:   &fakeLabels{},
			expected: "Used to reduce fever and relieve pain or inflammation.",
		},
		{
			name:     "purpose used when indications are missing",
			query:    "ibuprofen",
			labels:   &fakeLabels{label: &entities.DrugLabel{Purpose: []string{"Pain reliever/fever reducer"}}},
			expected: "Pain reliever/fever reducer",
		},
		{
			name:     "remote failure uses the local table and degrades",
			query:    "ibuprofen",
			labels:   &fakeLabels{err: errUpstream},
			expected: "Used to reduce fever and relieve pain or inflammation.",
			message:  MsgDegraded,
		},
		{
			name:     "unknown drug with remote failure",
			query:    "rarezolam",
			labels:   &fakeLabels{err: errUpstream},
			expected: entities.UsageNotAvailable,
			message:  MsgDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vocab := &fakeVocabulary{conceptID: "5640"}
			outcome, err := newTestService(vocab, tt.labels).Lookup(context.Background(), tt.query)
			require.NoError(t, err)

			assert.Equal(t, entities.StatusResolved, outcome.Status)
			assert.Equal(t, tt.expected, outcome.Result.Usage)
			assert.Equal(t, tt.message, outcome.Message)
		})
	}
}

func TestLookupStageIsolation(t *testing.T) {
	vocab := &fakeVocabulary{
		conceptID:  "5640",
		properties: &entities.ConceptProperties{Name: "ibuprofen", Tty: "IN"},
		groups:     groups([]string{"Advil", "Motrin"}),
		interErr:   errUpstream,
	}
	labels := &fakeLabels{label: &entities.DrugLabel{IndicationsAndUsage: []string{"Relieves pain."}}}

	outcome, err := newTestService(vocab, labels).Lookup(context.Background(), "ibuprofen")
	require.NoError(t, err)

	assert.Equal(t, entities.StatusResolved, outcome.Status)
	assert.Equal(t, MsgDegraded, outcome.Message)
	assert.NotNil(t, outcome.Result.Interactions)
	assert.Empty(t, outcome.Result.Interactions)
	assert.Equal(t, "ibuprofen", outcome.Result.Properties.CanonicalName)
	assert.Equal(t, "Advil, Motrin", outcome.Result.Synonyms.String())
	assert.Equal(t, "Relieves pain.", outcome.Result.Usage)
}

func TestLookupEveryFieldPopulated(t *testing.T) {
	vocab := &fakeVocabulary{
		conceptID: "5640",
		propsErr:  errUpstream,
		groupsErr: errUpstream,
		interErr:  errUpstream,
	}
	labels := &fakeLabels{err: errUpstream}

	outcome, err := newTestService(vocab, labels).Lookup(context.Background(), "unlisted")
	require.NoError(t, err)

	result := outcome.Result
	assert.Equal(t, entities.StatusResolved, outcome.Status)
	assert.Equal(t, entities.NotAvailable, result.Properties.CanonicalName)
	assert.Equal(t, entities.NotAvailable, result.Properties.FormType)
	assert.Equal(t, entities.NotAvailable, result.Synonyms.String())
	assert.Equal(t, entities.UsageNotAvailable, result.Usage)
	assert.NotNil(t, result.Interactions)
	assert.Equal(t, "5640", result.ConceptID)
}

func TestLookupMissingPropertyFieldsDefaultIndependently(t *testing.T) {
	vocab := &fakeVocabulary{
		conceptID:  "5640",
		properties: &entities.ConceptProperties{Name: "ibuprofen"},
	}

	outcome, err := newTestService(vocab, &fakeLabels{}).Lookup(context.Background(), "ibuprofen")
	require.NoError(t, err)
	assert.Equal(t, "ibuprofen", outcome.Result.Properties.CanonicalName)
	assert.Equal(t, entities.NotAvailable, outcome.Result.Properties.FormType)
}

func TestLookupHungStageOnlyDegradesItself(t *testing.T) {
	vocab := &fakeVocabulary{
		conceptID:  "5640",
		properties: &entities.ConceptProperties{Name: "ibuprofen", Tty: "IN"},
		groups:     groups([]string{"Advil"}),
		hang:       map[string]bool{stageInteractions: true},
	}
	labels := &fakeLabels{label: &entities.DrugLabel{Purpose: []string{"Pain reliever"}}}

	service := NewService(vocab, labels, data.NewDataContainer(), nil, Options{StageTimeout: 50 * time.Millisecond})

	start := time.Now()
	outcome, err := service.Lookup(context.Background(), "ibuprofen")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, entities.StatusResolved, outcome.Status)
	assert.Equal(t, MsgDegraded, outcome.Message)
	assert.Empty(t, outcome.Result.Interactions)
	assert.Equal(t, "ibuprofen", outcome.Result.Properties.CanonicalName)
	assert.Equal(t, "Advil", outcome.Result.Synonyms.String())
	assert.Equal(t, "Pain reliever", outcome.Result.Usage)
}

func TestLookupCache(t *testing.T) {
	vocab := &fakeVocabulary{conceptID: "5640"}
	labels := &fakeLabels{}
	service := NewService(vocab, labels, data.NewDataContainer(), cache.New(16, time.Minute), Options{
		StageTimeout: 200 * time.Millisecond,
	})

	first, err := service.Lookup(context.Background(), "Ibuprofen")
	require.NoError(t, err)
	second, err := service.Lookup(context.Background(), "ibuprofen ")
	require.NoError(t, err)

	assert.Equal(t, first.Result.Usage, second.Result.Usage)
	assert.Equal(t, int32(1), vocab.conceptCalls.Load(), "cache hit must skip upstream calls")
	assert.Equal(t, int32(1), labels.calls.Load())
}

func TestLookupCacheHandsOutIndependentResults(t *testing.T) {
	vocab := &fakeVocabulary{
		conceptID:    "5640",
		groups:       groups([]string{"Advil", "Motrin"}),
		interactions: []entities.InteractionGroup{{SourceName: "DrugBank"}},
	}
	service := NewService(vocab, &fakeLabels{}, data.NewDataContainer(), cache.New(16, time.Minute), Options{
		StageTimeout: 200 * time.Millisecond,
	})

	first, err := service.Lookup(context.Background(), "ibuprofen")
	require.NoError(t, err)
	require.NotEmpty(t, first.Result.Synonyms)
	require.NotEmpty(t, first.Result.Interactions)
	first.Result.Synonyms[0] = "changed"
	first.Result.Interactions[0].SourceName = "changed"

	second, err := service.Lookup(context.Background(), "ibuprofen")
	require.NoError(t, err)
	assert.Equal(t, "Advil, Motrin", second.Result.Synonyms.String())
	assert.Equal(t, "DrugBank", second.Result.Interactions[0].SourceName)
	assert.Equal(t, int32(1), vocab.conceptCalls.Load(), "second lookup must come from cache")
}

func TestDegradedOutcomeIsNotCached(t *testing.T) {
	vocab := &fakeVocabulary{conceptID: "5640", interErr: errUpstream}
	service := NewService(vocab, &fakeLabels{}, data.NewDataContainer(), cache.New(16, time.Minute), Options{
		StageTimeout: 200 * time.Millisecond,
	})

	first, err := service.Lookup(context.Background(), "ibuprofen")
	require.NoError(t, err)
	assert.Equal(t, MsgDegraded, first.Message)
	assert.Empty(t, first.Result.Interactions)

	// the interaction source recovers before the next query
	vocab.interErr = nil
	vocab.interactions = []entities.InteractionGroup{{SourceName: "DrugBank"}}

	second, err := service.Lookup(context.Background(), "ibuprofen")
	require.NoError(t, err)
	assert.NotEqual(t, MsgDegraded, second.Message)
	require.Len(t, second.Result.Interactions, 1)
	assert.Equal(t, int32(2), vocab.interactionCalls.Load())

	// the healthy result is cached
	_, err = service.Lookup(context.Background(), "ibuprofen")
	require.NoError(t, err)
	assert.Equal(t, int32(2), vocab.interactionCalls.Load())
}

func TestLookupFailedIsNotCached(t *testing.T) {
	vocab := &fakeVocabulary{conceptErr: errUpstream}
	service := NewService(vocab, &fakeLabels{}, data.NewDataContainer(), cache.New(16, time.Minute), Options{
		StageTimeout: 200 * time.Millisecond,
	})

	for range 2 {
		outcome, err := service.Lookup(context.Background(), "ibuprofen")
		require.NoError(t, err)
		assert.Equal(t, entities.StatusLookupFailed, outcome.Status)
	}
	assert.Equal(t, int32(2), vocab.conceptCalls.Load())
}

func TestLookupRetries(t *testing.T) {
	vocab := &flakyVocabulary{fakeVocabulary: fakeVocabulary{conceptID: "5640"}, failures: 2}
	service := NewService(vocab, &fakeLabels{}, data.NewDataContainer(), nil, Options{
		StageTimeout: time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})

	outcome, err := service.Lookup(context.Background(), "ibuprofen")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusResolved, outcome.Status)
	assert.Equal(t, int32(3), vocab.conceptCalls.Load())
}

// flakyVocabulary fails identity resolution a fixed number of times
type flakyVocabulary struct {
	fakeVocabulary
	failures int32
}

func (f *flakyVocabulary) FindConceptID(ctx context.Context, name string) (string, error) {
	if f.conceptCalls.Add(1) <= f.failures {
		return "", errors.New("temporary failure")
	}
	return f.conceptID, nil
}
