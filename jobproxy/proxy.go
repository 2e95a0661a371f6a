package jobproxy

import (
	"context"
	"fmt"

	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/httpclient"
)

type startResponse struct {
	Started *bool `json:"started"`
}

type progressResponse struct {
	Started  *bool `json:"started"`
	Progress *int  `json:"progress"`
	Finished *bool `json:"finished"`
}

// Proxy implements dag.Proxy on an httpclient.Adapter.
type Proxy struct {
	client *httpclient.Adapter
}

var _ dag.Proxy = (*Proxy)(nil)

func New(client *httpclient.Adapter) *Proxy {
	return &Proxy{client: client}
}

// NewFromConfig builds the adapter from cfg.
func NewFromConfig(cfg httpclient.Config, opts ...httpclient.Option) (*Proxy, error) {
	client, err := httpclient.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return New(client), nil
}

func (p *Proxy) Start(ctx context.Context, endpoint string) (bool, error) {
	resp, err := httpclient.Post[startResponse](p.client, ctx, endpoint, []byte("{}"))
	if err != nil {
		return false, err
	}
	if resp.Data.Started == nil {
		return false, malformed(resp.StatusCode, "start", `missing "started"`)
	}
	return *resp.Data.Started, nil
}

func (p *Proxy) Poll(ctx context.Context, endpoint string) (dag.Progress, error) {
	resp, err := httpclient.Get[progressResponse](p.client, ctx, endpoint)
	if err != nil {
		return dag.Progress{}, err
	}
	d := resp.Data
	switch {
	case d.Started == nil:
		return dag.Progress{}, malformed(resp.StatusCode, "progress", `missing "started"`)
	case d.Progress == nil:
		return dag.Progress{}, malformed(resp.StatusCode, "progress", `missing "progress"`)
	case d.Finished == nil:
		return dag.Progress{}, malformed(resp.StatusCode, "progress", `missing "finished"`)
	case *d.Progress < 0:
		return dag.Progress{}, malformed(resp.StatusCode, "progress", fmt.Sprintf("negative progress %d", *d.Progress))
	}
	return dag.Progress{
		Started:  *d.Started,
		Progress: min(*d.Progress, 100),
		Finished: *d.Finished,
	}, nil
}

func (p *Proxy) Close() { p.client.Close() }

func malformed(status int, call, reason string) error {
	return httpclient.NewDecodeError(status, nil, fmt.Errorf("malformed %s response: %s", call, reason))
}
