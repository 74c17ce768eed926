package banner

import (
	"fmt"

	"parley/pkg/config"
)

const banner = `
██████╗  █████╗ ██████╗ ██╗     ███████╗██╗   ██╗
██╔══██╗██╔══██╗██╔══██╗██║     ██╔════╝╚██╗ ██╔╝
██████╔╝███████║██████╔╝██║     █████╗   ╚████╔╝
██╔═══╝ ██╔══██║██╔══██╗██║     ██╔══╝    ╚██╔╝
██║     ██║  ██║██║  ██║███████╗███████╗   ██║
╚═╝     ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚══════╝   ╚═╝
`

// Print renders the startup banner with the effective configuration and a
// short production checklist.
func Print(eff config.EffectiveConfigResult, backend, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("Data:     %s\n", eff.DBPath)
	fmt.Printf("Backend:  %s\n", backend)
	if eff.Config != nil {
		fmt.Printf("Engine:   %s\n", eff.Config.Server.Engine)
	}
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", eff.Source)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/conversations               - Open a conversation with a peer")
	fmt.Println("GET  /v1/conversations               - List your conversations")
	fmt.Println("POST /v1/conversations/{id}/messages - Send a message")
	fmt.Println("GET  /v1/conversations/{id}/messages - Page through history")
	fmt.Println("POST /v1/tickets                     - Open a support ticket")
	fmt.Println("GET  /docs/                          - API documentation")

	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/conversations' -H 'X-User-ID: alice' -d '{\"peer\":\"bob\"}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/v1/conversations' -H 'X-User-ID: alice'\n", addr)

	fmt.Println("\n== Production? =================================================")
	if backend == "memory" {
		fmt.Println("- Storage: VOLATILE (memory backend; data is lost on restart)")
	} else {
		fmt.Println("- Storage: durable (pebble)")
	}
	tlsOK := eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != ""
	if tlsOK {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured (terminate TLS upstream or set server.tls)")
	}
	if eff.DBPath == "" {
		fmt.Println("- Data path: not set (use --db or PARLEY_DB_PATH)")
	}
	fmt.Println("- Identity: trusted from X-User-ID / X-Role-Name; keep this behind the gateway")
	fmt.Println()
}
