package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"grix-mcp/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type protocolsPayload struct {
	Protocols  []string `json:"protocols"`
	InputData  []string `json:"inputData"`
	AgentName  string   `json:"agentName"`
	Simulation bool     `json:"simulation"`
}

func registerResources(server *mcp.Server, options OptionsReader) {
	server.AddResource(&mcp.Resource{
		URI:         "grix://supported-assets",
		Name:        "supported-assets",
		Description: "Assets, option types and position types accepted by the tools",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, map[string][]string{
			"assets":        domain.SupportedAssets,
			"optionTypes":   domain.SupportedOptionTypes,
			"positionTypes": domain.SupportedPositionTypes,
		})
	})

	server.AddResource(&mcp.Resource{
		URI:         "grix://protocols",
		Name:        "protocols",
		Description: "Protocol allow-list and agent input channels used for every upstream request",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, protocolsPayload{
			Protocols:  domain.DefaultProtocols,
			InputData:  domain.DefaultInputData,
			AgentName:  domain.DefaultAgentName,
			Simulation: true,
		})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "options://{asset}/{optionType}/{positionType}",
		Name:        "options-board",
		Description: "Cached option board for an asset, option type and position type",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if options == nil {
			return nil, fmt.Errorf("options service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil || parsed.Scheme != "options" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		if parsed.Host == "" || len(parts) != 2 {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		q, err := domain.ParseOptionQuery(parsed.Host, parts[0], parts[1])
		if err != nil {
			return nil, err
		}
		list, err := options.GetOptions(ctx, q)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, optionsOutput{
			Asset:        q.Asset,
			OptionType:   q.OptionType,
			PositionType: q.PositionType,
			Options:      list,
		})
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
