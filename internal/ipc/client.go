package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Platen.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Platen.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobList returns jobs optionally filtered to one status.
func (c *Client) JobList(status string) (*JobListResponse, error) {
	var resp JobListResponse
	if err := c.client.Call("Platen.JobList", JobListRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobDescribe returns details for a single job.
func (c *Client) JobDescribe(id int64) (*JobDescribeResponse, error) {
	var resp JobDescribeResponse
	if err := c.client.Call("Platen.JobDescribe", JobDescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobAdd creates a job for a full selection, or returns the existing one.
func (c *Client) JobAdd(req JobAddRequest) (*JobAddResponse, error) {
	var resp JobAddResponse
	if err := c.client.Call("Platen.JobAdd", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobRequeue places a job back on the dispatch queue.
func (c *Client) JobRequeue(id int64) (*JobRequeueResponse, error) {
	var resp JobRequeueResponse
	if err := c.client.Call("Platen.JobRequeue", JobRequeueRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRetry requeues failed jobs.
func (c *Client) QueueRetry(ids []int64) (*QueueRetryResponse, error) {
	var resp QueueRetryResponse
	if err := c.client.Call("Platen.QueueRetry", QueueRetryRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueHealth returns queue diagnostics.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	var resp QueueHealthResponse
	if err := c.client.Call("Platen.QueueHealth", QueueHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QuoteResolve resolves a quote's line items into jobs.
func (c *Client) QuoteResolve(id int64) (*QuoteResolveResponse, error) {
	var resp QuoteResolveResponse
	if err := c.client.Call("Platen.QuoteResolve", QuoteResolveRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QuoteDescribe returns details for a single quote.
func (c *Client) QuoteDescribe(id int64) (*QuoteDescribeResponse, error) {
	var resp QuoteDescribeResponse
	if err := c.client.Call("Platen.QuoteDescribe", QuoteDescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
