package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aretw0/zonerules"
	"github.com/aretw0/zonerules/pkg/adapters/mcp"
	"github.com/aretw0/zonerules/pkg/adapters/memory"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *mcp.Server {
	t.Helper()
	provider := memory.NewProvider()
	for _, f := range ports.ContractFixtures() {
		require.NoError(t, provider.Add(f.Region, f.Version, f.Rules))
	}
	svc, err := zonerules.New("", zonerules.WithProvider("TZDB", provider))
	require.NoError(t, err)
	return mcp.NewServer(svc, nil)
}

type toolResult struct {
	IsError           bool            `json:"isError"`
	StructuredContent json.RawMessage `json:"structuredContent"`
	Content           []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// call sends a JSON-RPC request straight to the server and decodes its result.
func call(t *testing.T, s *mcp.Server, method string, params any, out any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	resp := s.MCPServer().HandleMessage(context.Background(), raw)
	encoded, err := json.Marshal(resp)
	require.NoError(t, err)

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	require.NoError(t, json.Unmarshal(encoded, &envelope))
	require.Empty(t, envelope.Error, string(encoded))
	require.NoError(t, json.Unmarshal(envelope.Result, out), string(encoded))
}

func callTool(t *testing.T, s *mcp.Server, name string, args map[string]any) toolResult {
	t.Helper()
	var res toolResult
	call(t, s, "tools/call", map[string]any{"name": name, "arguments": args}, &res)
	return res
}

func TestServer_ZoneOffset(t *testing.T) {
	s := newServer(t)

	t.Run("Summer", func(t *testing.T) {
		res := callTool(t, s, "zone_offset", map[string]any{"zone": "Europe/Testland", "at": "2025-07-01T00:00:00Z"})
		require.False(t, res.IsError, fmt.Sprint(res.Content))

		var out mcp.OffsetResult
		require.NoError(t, json.Unmarshal(res.StructuredContent, &out))
		assert.Equal(t, "+02:00", out.Offset)
	})

	t.Run("Unknown Zone", func(t *testing.T) {
		res := callTool(t, s, "zone_offset", map[string]any{"zone": "Europe/Atlantis"})
		assert.True(t, res.IsError)
		require.NotEmpty(t, res.Content)
		assert.Contains(t, res.Content[0].Text, "unknown zone")
	})

	t.Run("Bad Instant", func(t *testing.T) {
		res := callTool(t, s, "zone_offset", map[string]any{"zone": "Europe/Testland", "at": "soon"})
		assert.True(t, res.IsError)
	})
}

func TestServer_ResolveLocal(t *testing.T) {
	s := newServer(t)

	res := callTool(t, s, "resolve_local", map[string]any{"zone": "Europe/Testland", "local": "2019-10-27T02:30"})
	require.False(t, res.IsError, fmt.Sprint(res.Content))

	var out mcp.ResolveResult
	require.NoError(t, json.Unmarshal(res.StructuredContent, &out))
	assert.Equal(t, "overlap", out.Kind)
	assert.Equal(t, []string{"+02:00", "+01:00"}, out.Offsets)
	assert.NotEmpty(t, out.Transition)
}

func TestServer_ListTransitions(t *testing.T) {
	s := newServer(t)

	res := callTool(t, s, "list_transitions", map[string]any{
		"zone": "Europe/Testland#2018a",
		"from": "2018-01-01T00:00:00Z",
		"to":   "2030-01-01T00:00:00Z",
	})
	require.False(t, res.IsError, fmt.Sprint(res.Content))

	var out mcp.TransitionsResult
	require.NoError(t, json.Unmarshal(res.StructuredContent, &out))
	assert.Len(t, out.Transitions, 2)
}

func TestServer_ZonesResource(t *testing.T) {
	s := newServer(t)

	var res struct {
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
	}
	call(t, s, "resources/read", map[string]any{"uri": mcp.ZonesURI}, &res)
	require.Len(t, res.Contents, 1)

	var zones []string
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &zones))
	assert.Equal(t, []string{ports.ContractRegion}, zones)
}
