package logicclient

import (
	"context"
	"strings"
)

// run submits a command and waits for it.
func (c *Client) run(ctx context.Context, name string, args ...any) (*Command, error) {
	cmd := c.Do(name, args...)
	if err := cmd.Wait(ctx); err != nil {
		return cmd, err
	}
	return cmd, nil
}

// GetVersion returns the server's version message.
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	cmd, err := c.run(ctx, CmdVersion)
	if err != nil {
		return "", err
	}
	return cmd.Message(), nil
}

// GetSubscriptions returns the server's subscription list, one entry per line.
func (c *Client) GetSubscriptions(ctx context.Context) ([]string, error) {
	return c.lines(ctx, CmdSubscriptions)
}

// ListObjects returns the lst listing of objects and parameters.
func (c *Client) ListObjects(ctx context.Context) ([]string, error) {
	return c.lines(ctx, CmdList)
}

// ServerStats returns the stats listing.
func (c *Client) ServerStats(ctx context.Context) ([]string, error) {
	return c.lines(ctx, CmdStats)
}

// Help returns the server's command help.
func (c *Client) Help(ctx context.Context) ([]string, error) {
	return c.lines(ctx, CmdHelp)
}

func (c *Client) lines(ctx context.Context, name string) ([]string, error) {
	cmd, err := c.run(ctx, name)
	if err != nil {
		return nil, err
	}
	return cmd.Lines(), nil
}

// GetExports returns every exported parameter.
func (c *Client) GetExports(ctx context.Context) ([]Export, error) {
	cmd, err := c.run(ctx, CmdListExports)
	if err != nil {
		return nil, err
	}
	return ParseExports(cmd.Lines())
}

// GetInfo returns information about the running graph.
func (c *Client) GetInfo(ctx context.Context) (GraphInfo, error) {
	cmd, err := c.run(ctx, CmdInfo)
	if err != nil {
		return GraphInfo{}, err
	}
	return ParseInfo(cmd.Message()), nil
}

// Get reads one parameter value.
func (c *Client) Get(ctx context.Context, objID, index int) (any, error) {
	cmd, err := c.run(ctx, CmdGet, objID, index)
	if err != nil {
		return nil, err
	}
	return ParseGetResponse(cmd.Message())
}

// ParseGetResponse converts the "<type> - <value>" message of a get response.
func ParseGetResponse(message string) (any, error) {
	typ, value, _ := strings.Cut(message, responseSeparator)
	return ConvertValue(value, ParamType(typ))
}

// Set writes one parameter value.
func (c *Client) Set(ctx context.Context, objID, index int, value any) error {
	_, err := c.run(ctx, CmdSet, objID, index, value)
	return err
}

// Download fetches a binary payload from the server.
func (c *Client) Download(ctx context.Context, args ...any) ([]byte, error) {
	cmd, err := c.run(ctx, CmdDownload, args...)
	if err != nil {
		return nil, err
	}
	return cmd.Data(), nil
}
