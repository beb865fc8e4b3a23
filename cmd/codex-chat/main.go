// codex-chat is a terminal chat frontend for the codex agent runtime.
//
// It wires the client with the stock plugins, streams agent output to the
// terminal, and maps a few slash commands onto client operations.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	codex "github.com/moofone/codex-go"
	"github.com/moofone/codex-go/plugins"
	"github.com/moofone/codex-go/protocol"
	"github.com/moofone/codex-go/schedule"
	"github.com/moofone/codex-go/transport"
)

func main() {
	model := flag.String("model", "", "model ID or registry shorthand")
	sandbox := flag.String("sandbox", "workspace-write", "sandbox mode")
	approval := flag.String("approval", "on-request", "approval policy")
	autoApprove := flag.Bool("auto-approve", false, "approve every exec and patch request")
	codexHome := flag.String("codex-home", "", "codex home directory (default $CODEX_HOME or ~/.codex)")
	logDir := flag.String("log-dir", "", "directory for log files")
	recordDir := flag.String("record-dir", "", "directory for the event recorder database")
	compactCron := flag.String("compact-cron", "", "cron expression for periodic conversation compaction")
	dockerImage := flag.String("docker-image", "", "run the agent in a container from this image")
	flag.Parse()

	if err := run(*model, *sandbox, *approval, *autoApprove, *codexHome, *logDir, *recordDir, *compactCron, *dockerImage); err != nil {
		fmt.Fprintf(os.Stderr, "codex-chat: %v\n", err)
		os.Exit(1)
	}
}

func run(model, sandbox, approval string, autoApprove bool, codexHome, logDir, recordDir, compactCron, dockerImage string) error {
	ctx := context.Background()

	pluginList := []codex.Plugin{
		&plugins.Logging{},
		plugins.DefaultRateLimit(),
	}
	var recorder *plugins.Recorder
	if recordDir != "" {
		var err error
		recorder, err = plugins.NewRecorder(recordDir)
		if err != nil {
			return err
		}
		defer func() { _ = recorder.Close() }()
		pluginList = append(pluginList, recorder)
	}

	var t transport.Transport
	if dockerImage != "" {
		var err error
		t, err = transport.NewDockerTransport(transport.DockerOptions{Image: dockerImage})
		if err != nil {
			return err
		}
	}

	client, err := codex.NewClient(codex.ClientOptions{
		Transport: t,
		CodexHome: codexHome,
		LogDir:    logDir,
		Plugins:   pluginList,
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close(ctx) }()

	if err := client.EnsureAuthenticated(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	client.OnSessionConfigured(func(ctx context.Context, msg protocol.SessionConfiguredMsg) {
		fmt.Printf("session %s ready (model %s)\n", msg.SessionID, msg.Model)
	})
	client.OnExecApprovalRequest(func(ctx context.Context, msg protocol.ExecApprovalRequestMsg) {
		fmt.Printf("\nexec approval requested: %s\n", strings.Join(msg.Command, " "))
		if _, err := client.RespondToExecApproval(ctx, msg.CallID, autoApprove); err != nil {
			fmt.Fprintf(os.Stderr, "failed to answer approval: %v\n", err)
		}
	})
	client.OnPatchApprovalRequest(func(ctx context.Context, msg protocol.ApplyPatchApprovalRequestMsg) {
		fmt.Printf("\npatch approval requested (%d files)\n", len(msg.Changes))
		if _, err := client.RespondToPatchApproval(ctx, msg.CallID, autoApprove); err != nil {
			fmt.Fprintf(os.Stderr, "failed to answer approval: %v\n", err)
		}
	})

	if _, err := client.CreateConversation(ctx, codex.ConversationOptions{
		Model:          model,
		SandboxMode:    sandbox,
		ApprovalPolicy: approval,
	}); err != nil {
		return err
	}

	if compactCron != "" {
		compactor, err := schedule.NewCompactor(client, compactCron)
		if err != nil {
			return err
		}
		compactor.Start()
		defer compactor.Stop()
	}

	stream, err := client.Events(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		printEvents(stream)
	}()

	fmt.Println("type a message, or /interrupt /compact /status /tools /quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var opErr error
		switch line {
		case "/quit":
			_, _ = client.Shutdown(ctx)
			<-streamDone
			return nil
		case "/interrupt":
			_, opErr = client.Interrupt(ctx)
		case "/compact":
			_, opErr = client.Compact(ctx)
		case "/status":
			_, opErr = client.Status(ctx)
		case "/tools":
			_, opErr = client.ListMcpTools(ctx)
		default:
			_, opErr = client.SendMessage(ctx, line)
		}
		if opErr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", opErr)
		}
	}
	return scanner.Err()
}

// printEvents renders the event stream until it terminates
func printEvents(stream *codex.EventStream) {
	for stream.Next() {
		switch msg := stream.Event().Msg.(type) {
		case protocol.AgentMessageDeltaMsg:
			fmt.Print(msg.Delta)
		case protocol.AgentMessageMsg:
			fmt.Println()
		case protocol.TaskCompleteMsg:
			fmt.Println("\n---")
		case protocol.TokenCountMsg:
			if msg.Info != nil {
				fmt.Printf("[tokens: %d total]\n", msg.Info.TotalTokenUsage.TotalTokens)
			}
		case protocol.McpListToolsResponseMsg:
			for _, name := range protocol.ToolNames(msg) {
				fmt.Printf("tool: %s\n", name)
			}
		case protocol.BackgroundEventMsg:
			fmt.Printf("[%s]\n", msg.Message)
		case protocol.ErrorMsg:
			fmt.Fprintf(os.Stderr, "runtime error: %s\n", msg.Message)
		case protocol.ShutdownCompleteMsg:
			fmt.Println("shutdown complete")
		}
	}
	if err := stream.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "event stream ended: %v\n", err)
	}
}
