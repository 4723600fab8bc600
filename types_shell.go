package smp

type ShellExecRequest struct {
	Argv []string `cbor:"argv"`
}

// ShellExecResponse carries the captured output and the command's return
// code (ret on current stacks).
type ShellExecResponse struct {
	O   string `cbor:"o"`
	Ret int32  `cbor:"ret,omitempty"`
}
