package smp

import "context"

// ShellExec runs a shell command on the device and returns its captured
// output and return code.
func (c *Client) ShellExec(ctx context.Context, argv []string) (*ShellExecResponse, error) {
	if len(argv) == 0 {
		return nil, &ConfigError{Reason: "no shell command given"}
	}
	var rsp ShellExecResponse
	if err := c.Call(ctx, OpWrite, GroupShell, CmdShellExec, ShellExecRequest{Argv: argv}, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}
