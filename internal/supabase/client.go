package supabase

import (
	"fmt"
	"strings"

	"github.com/supabase-community/supabase-go"
)

// Client is the PostgREST entry point of a Supabase project.
type Client struct {
	Supabase *supabase.Client
}

func NewClient(projectURL, apiKey string) (*Client, error) {
	client, err := supabase.NewClient(strings.TrimRight(projectURL, "/"), apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &Client{Supabase: client}, nil
}
