package config_test

import (
	"errors"
	"testing"

	"github.com/asterbyte/jarvis/internal/config"
	"github.com/asterbyte/jarvis/pkg/provider/nlp"
	nlpmock "github.com/asterbyte/jarvis/pkg/provider/nlp/mock"
	"github.com/asterbyte/jarvis/pkg/provider/recognizer"
	recmock "github.com/asterbyte/jarvis/pkg/provider/recognizer/mock"
)

func TestRegistry_CreateRegistered(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	reg.RegisterRecognizer("fake", func(config.ProviderEntry) (recognizer.Provider, error) {
		return &recmock.Provider{}, nil
	})

	p, err := reg.CreateRecognizer(config.ProviderEntry{Name: "fake"})
	if err != nil {
		t.Fatalf("CreateRecognizer: %v", err)
	}
	if p == nil {
		t.Fatal("CreateRecognizer returned nil provider")
	}
}

func TestRegistry_CreateUnregistered(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	_, err := reg.CreateNLP(config.ProviderEntry{Name: "nope"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v; want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_EntryIsPassedToFactory(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	var gotModel string
	reg.RegisterNLP("fake", func(e config.ProviderEntry) (nlp.Provider, error) {
		gotModel = e.Model
		return &nlpmock.Provider{}, nil
	})

	if _, err := reg.CreateNLP(config.ProviderEntry{Name: "fake", Model: "gpt-4o"}); err != nil {
		t.Fatalf("CreateNLP: %v", err)
	}
	if gotModel != "gpt-4o" {
		t.Errorf("factory received model %q; want gpt-4o", gotModel)
	}
}
