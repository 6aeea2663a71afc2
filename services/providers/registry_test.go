package providers

import (
	"errors"
	"testing"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	if err := registry.RegisterProvider(NewMockProvider("openai")); err != nil {
		t.Fatalf("RegisterProvider() error = %v", err)
	}
	if err := registry.RegisterProvider(NewMockProvider("groq")); err != nil {
		t.Fatalf("RegisterProvider() error = %v", err)
	}

	t.Run("duplicate", func(t *testing.T) {
		err := registry.RegisterProvider(NewMockProvider("groq"))
		if !errors.Is(err, ErrProviderAlreadyRegistered) {
			t.Errorf("RegisterProvider() error = %v, want ErrProviderAlreadyRegistered", err)
		}
	})

	t.Run("invalid providers", func(t *testing.T) {
		if err := registry.RegisterProvider(nil); err == nil {
			t.Error("RegisterProvider(nil) expected error")
		}
		if err := registry.RegisterProvider(NewMockProvider("")); err == nil {
			t.Error("RegisterProvider(empty name) expected error")
		}
	})

	t.Run("lookup", func(t *testing.T) {
		provider, err := registry.GetProvider("groq")
		if err != nil {
			t.Fatalf("GetProvider() error = %v", err)
		}
		if provider.Name() != "groq" {
			t.Errorf("Name() = %s, want groq", provider.Name())
		}

		if _, err := registry.GetProvider("anthropic"); !errors.Is(err, ErrProviderNotFound) {
			t.Errorf("GetProvider() error = %v, want ErrProviderNotFound", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		names := registry.ListProviders()
		if len(names) != 2 || names[0] != "groq" || names[1] != "openai" {
			t.Errorf("ListProviders() = %v, want [groq openai]", names)
		}
		if registry.GetProviderCount() != 2 {
			t.Errorf("GetProviderCount() = %d, want 2", registry.GetProviderCount())
		}
	})
}
