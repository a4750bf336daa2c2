package httpapi

import (
	"context"
	"fmt"

	"github.com/flowzero/zflow/internal/codec"
	"github.com/flowzero/zflow/internal/registry"
	"github.com/flowzero/zflow/pkg/api"
)

// resolve turns a decoded startRequest into the concrete flow to start,
// following spec §4.5's start algorithm step 2: look up a template if
// needed, decode and bind a parameter if one was supplied, and fail with
// a *api.DecodeError if a parameter is supplied for a parameterless
// template or vice versa.
func resolve(ctx context.Context, templates *registry.Registry, req startRequest) (api.Flow, error) {
	switch {
	case req.flow != nil:
		return *req.flow, nil

	case req.flowWithParameter != nil:
		body := req.flowWithParameter
		if body.InputSchema == nil {
			return api.Flow{}, api.NewDecodeError("FlowWithParameter", fmt.Errorf("inputSchema is required"))
		}
		param, err := codec.DecodeBySchema(body.InputSchema, body.Parameter)
		if err != nil {
			return api.Flow{}, api.NewDecodeError("FlowWithParameter.parameter", err)
		}
		return body.Flow.Provide(param), nil

	case req.templateID != "":
		tmpl, err := templates.Get(ctx, req.templateID)
		if err != nil {
			return api.Flow{}, err
		}
		if tmpl.InputSchema != nil {
			return api.Flow{}, api.NewDecodeError("Template", fmt.Errorf("template %q requires a parameter", req.templateID))
		}
		return tmpl.Flow, nil

	case req.templateWithParam != nil:
		body := req.templateWithParam
		tmpl, err := templates.Get(ctx, body.Id)
		if err != nil {
			return api.Flow{}, err
		}
		if tmpl.InputSchema == nil {
			return api.Flow{}, api.NewDecodeError("TemplateWithParameter", fmt.Errorf("template %q does not accept a parameter", body.Id))
		}
		param, err := codec.DecodeBySchema(tmpl.InputSchema, body.Parameter)
		if err != nil {
			return api.Flow{}, api.NewDecodeError("TemplateWithParameter.parameter", err)
		}
		return tmpl.Flow.Provide(param), nil

	default:
		return api.Flow{}, api.NewDecodeError("StartRequest", fmt.Errorf("no variant populated"))
	}
}
