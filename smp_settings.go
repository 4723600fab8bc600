package smp

import "context"

// SettingsRead reads the value stored under name. maxSize, if non-nil,
// bounds the returned value size.
func (c *Client) SettingsRead(ctx context.Context, name string, maxSize *uint32) ([]byte, error) {
	req := SettingsReadRequest{Name: name, MaxSize: maxSize}
	var rsp SettingsReadResponse
	if err := c.Call(ctx, OpRead, GroupSettings, CmdSettingsVal, req, &rsp); err != nil {
		return nil, err
	}
	return rsp.Val, nil
}

// SettingsWrite stores val under name.
func (c *Client) SettingsWrite(ctx context.Context, name string, val []byte) error {
	req := SettingsWriteRequest{Name: name, Val: val}
	return c.Call(ctx, OpWrite, GroupSettings, CmdSettingsVal, req, nil)
}

// SettingsDelete removes the value stored under name.
func (c *Client) SettingsDelete(ctx context.Context, name string) error {
	return c.Call(ctx, OpWrite, GroupSettings, CmdSettingsDelete, SettingsDeleteRequest{Name: name}, nil)
}

// SettingsCommit applies pending settings changes.
func (c *Client) SettingsCommit(ctx context.Context) error {
	return c.Call(ctx, OpWrite, GroupSettings, CmdSettingsCommit, nil, nil)
}

// SettingsLoad loads settings from persistent storage.
func (c *Client) SettingsLoad(ctx context.Context) error {
	return c.Call(ctx, OpWrite, GroupSettings, CmdSettingsLoad, nil, nil)
}

// SettingsSave saves settings to persistent storage.
func (c *Client) SettingsSave(ctx context.Context) error {
	return c.Call(ctx, OpWrite, GroupSettings, CmdSettingsSave, nil, nil)
}
