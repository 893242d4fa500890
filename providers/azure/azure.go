// Package azure implements the provider client seam against Azure
// Resource Manager, using the generic resources client so one provider
// covers every kind the manifest maps to an ARM resource type.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/google/uuid"

	"github.com/anneal-io/anneal/internal/graph"
	"github.com/anneal-io/anneal/internal/logging"
	"github.com/anneal-io/anneal/internal/provider"
)

// Kind maps a manifest kind onto an ARM resource type and API version.
type Kind struct {
	ResourceType string // e.g. "Microsoft.KeyVault/vaults"
	APIVersion   string // e.g. "2023-07-01"
}

// Options configure one provider instance. Every kind that may appear in a
// graph must be mapped.
type Options struct {
	SubscriptionID string
	ResourceGroup  string

	// Location is applied to resources whose desired properties carry
	// no "location" of their own.
	Location string

	Kinds map[string]Kind
}

// Provider implements provider.Client over the ARM generic resources API.
// Long-running create/update operations are tracked as live SDK pollers
// keyed by operation handle.
type Provider struct {
	opts   Options
	client *armresources.Client

	mu      sync.Mutex
	pollers map[string]*runtime.Poller[armresources.ClientCreateOrUpdateByIDResponse]
}

// New builds a provider authenticated through the default Azure credential
// chain (environment, workload identity, managed identity, CLI).
func New(opts Options) (*Provider, error) {
	if opts.SubscriptionID == "" || opts.ResourceGroup == "" {
		return nil, fmt.Errorf("azure provider: subscription_id and resource_group are required")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure provider: credential: %w", err)
	}
	client, err := armresources.NewClient(opts.SubscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure provider: client: %w", err)
	}
	return &Provider{
		opts:    opts,
		client:  client,
		pollers: make(map[string]*runtime.Poller[armresources.ClientCreateOrUpdateByIDResponse]),
	}, nil
}

func (p *Provider) kind(id graph.Identity) (Kind, error) {
	k, ok := p.opts.Kinds[id.Kind]
	if !ok {
		return Kind{}, fmt.Errorf("azure provider: kind %q has no ARM type mapping", id.Kind)
	}
	return k, nil
}

func (p *Provider) resourceID(id graph.Identity, k Kind) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s",
		p.opts.SubscriptionID, p.opts.ResourceGroup, k.ResourceType, id.Name)
}

func (p *Provider) Fetch(ctx context.Context, id graph.Identity) (*provider.Observed, error) {
	k, err := p.kind(id)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.GetByID(ctx, p.resourceID(id, k), k.APIVersion, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, provider.ErrNotFound
		}
		return nil, err
	}
	return observedFrom(resp.GenericResource), nil
}

func (p *Provider) Apply(ctx context.Context, id graph.Identity, desired map[string]any) (provider.OperationHandle, error) {
	k, err := p.kind(id)
	if err != nil {
		return provider.OperationHandle{}, err
	}

	poller, err := p.client.BeginCreateOrUpdateByID(ctx, p.resourceID(id, k), k.APIVersion, p.genericResource(desired), nil)
	if err != nil {
		return provider.OperationHandle{}, err
	}

	handle := provider.OperationHandle{ID: uuid.NewString(), Kind: id.Kind}
	p.mu.Lock()
	p.pollers[handle.ID] = poller
	p.mu.Unlock()

	logging.Debug("arm operation started", "node", id.String(), "resource", p.resourceID(id, k))
	return handle, nil
}

func (p *Provider) Poll(ctx context.Context, handle provider.OperationHandle) (provider.PollResult, error) {
	p.mu.Lock()
	poller, ok := p.pollers[handle.ID]
	p.mu.Unlock()
	if !ok {
		return provider.PollResult{}, fmt.Errorf("azure provider: unknown operation %s", handle.ID)
	}

	if _, err := poller.Poll(ctx); err != nil {
		return provider.PollResult{}, err
	}
	if !poller.Done() {
		return provider.PollResult{State: provider.PollPending}, nil
	}

	p.mu.Lock()
	delete(p.pollers, handle.ID)
	p.mu.Unlock()

	resp, err := poller.Result(ctx)
	if err != nil {
		return provider.PollResult{State: provider.PollFailed, Err: err}, nil
	}
	return provider.PollResult{
		State:   provider.PollSucceeded,
		Outputs: observedFrom(resp.GenericResource).Outputs,
	}, nil
}

func (p *Provider) Delete(ctx context.Context, id graph.Identity) error {
	k, err := p.kind(id)
	if err != nil {
		return err
	}

	poller, err := p.client.BeginDeleteByID(ctx, p.resourceID(id, k), k.APIVersion, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return provider.ErrNotFound
		}
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

// genericResource maps resolved desired properties onto the ARM payload:
// "location", "tags", and "kind" fill the matching top-level fields, the
// rest becomes the resource's properties bag.
func (p *Provider) genericResource(desired map[string]any) armresources.GenericResource {
	res := armresources.GenericResource{}
	props := make(map[string]any, len(desired))

	for key, v := range desired {
		switch key {
		case "location":
			if s, ok := v.(string); ok {
				res.Location = to.Ptr(s)
				continue
			}
		case "kind":
			if s, ok := v.(string); ok {
				res.Kind = to.Ptr(s)
				continue
			}
		case "tags":
			if m, ok := v.(map[string]any); ok {
				tags := make(map[string]*string, len(m))
				for tk, tv := range m {
					tags[tk] = to.Ptr(fmt.Sprintf("%v", tv))
				}
				res.Tags = tags
				continue
			}
		}
		props[key] = v
	}

	if res.Location == nil && p.opts.Location != "" {
		res.Location = to.Ptr(p.opts.Location)
	}
	if len(props) > 0 {
		res.Properties = props
	}
	return res
}

// observedFrom splits an ARM resource into comparison properties and
// provider-assigned outputs. Every key of the ARM properties bag appears in
// both: desired fields compare via the engine's subset check, and
// provisioned values (URIs, thumbprints) become referenceable outputs.
func observedFrom(res armresources.GenericResource) *provider.Observed {
	obs := &provider.Observed{
		Properties: make(map[string]any),
		Outputs:    make(map[string]any),
	}
	if res.Location != nil {
		obs.Properties["location"] = *res.Location
	}
	if res.Kind != nil {
		obs.Properties["kind"] = *res.Kind
	}
	if len(res.Tags) > 0 {
		tags := make(map[string]any, len(res.Tags))
		for k, v := range res.Tags {
			if v != nil {
				tags[k] = *v
			}
		}
		obs.Properties["tags"] = tags
	}
	if bag, ok := res.Properties.(map[string]any); ok {
		for k, v := range bag {
			obs.Properties[k] = v
			obs.Outputs[k] = v
		}
	}
	if res.ID != nil {
		obs.Outputs["id"] = *res.ID
	}
	if res.Name != nil {
		obs.Outputs["name"] = *res.Name
	}
	return obs
}
