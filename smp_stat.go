package smp

import "context"

// StatList lists the statistics group names registered on the device.
func (c *Client) StatList(ctx context.Context) (*StatListResponse, error) {
	var rsp StatListResponse
	if err := c.Call(ctx, OpRead, GroupStat, CmdStatList, nil, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// StatRead reads all counters of one statistics group.
func (c *Client) StatRead(ctx context.Context, name string) (*StatReadResponse, error) {
	var rsp StatReadResponse
	if err := c.Call(ctx, OpRead, GroupStat, CmdStatRead, StatReadRequest{Name: name}, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}
