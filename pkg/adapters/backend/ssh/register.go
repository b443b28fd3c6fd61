package ssh

import (
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
)

func init() {
	backend.Register(backend.BackendRegistration{
		Info: backend.BackendInfo{
			Type:        "ssh",
			DisplayName: "SSH shell",
			Description: "Run shell commands on a remote host over SSH (password or private key)",
			Kind:        backend.KindShell,
		},
		New: func(logger *zap.Logger) backend.Conn {
			return NewConn(logger)
		},
	})
}
