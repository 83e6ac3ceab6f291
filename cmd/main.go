package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"meingenie/handler"
	appconfig "meingenie/internal/config"
	"meingenie/internal/credentials"
	"meingenie/internal/integrations/genie"
	"meingenie/internal/integrations/paramstore"
	"meingenie/internal/repository"
)

const usage = `Usage: meingenie <command> [flags]

Account:
  login [--google] [--email addr]   sign in
  register                          create an account
  reset-password [--email addr]     request a password reset link
  logout                            forget the stored tokens
  whoami                            show the signed-in account

Services:
  hub                               choose a service
  form --document id [--description text] [--audio-file path] [--lang code]
                                    fill in a form by chatting with Formino
  profile [--edit] [--image path] [--delete-image]
                                    show or edit your profile
  docs list | rename <id> <name> | delete <id>
                                    manage your documents
  transcribe --file path [--lang code]
                                    transcribe a recording
  tutorial                          how Mein Genie works
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return handler.ExitValidation
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(os.Stdout, usage)
		return handler.ExitOK
	}

	// ---- Configuration (read only here) ----
	cfg, err := appconfig.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		return handler.ExitInternal
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// ---- AWS SDK config, only when SSM or DynamoDB is in use ----
	var store credentials.Store
	if cfg.UsesAWS() {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			slog.Error("failed to load AWS config", "err", err)
			return handler.ExitInternal
		}
		if cfg.ParamPrefix != "" {
			params, err := paramstore.New(awsssm.NewFromConfig(awsCfg), cfg.ParamPrefix)
			if err != nil {
				slog.Error("failed to create SSM client", "err", err)
				return handler.ExitInternal
			}
			if err := cfg.ApplyRemote(ctx, params); err != nil {
				slog.Error("failed to read remote configuration", "err", err)
				return handler.ExitInternal
			}
		}
		if cfg.CredentialsStore == appconfig.StoreDynamoDB {
			store, err = repository.NewDynamoStore(awsdynamodb.NewFromConfig(awsCfg), cfg.CredentialsTable, cfg.Profile)
			if err != nil {
				slog.Error("failed to create credential store", "err", err)
				return handler.ExitInternal
			}
		}
	}
	if store == nil {
		path := cfg.CredentialsFile
		if path == "" {
			if path, err = repository.DefaultFilePath(); err != nil {
				slog.Error("failed to resolve credentials path", "err", err)
				return handler.ExitInternal
			}
		}
		if store, err = repository.NewFileStore(path); err != nil {
			slog.Error("failed to create credential store", "err", err)
			return handler.ExitInternal
		}
	}

	// ---- Clients ----
	provider, err := credentials.NewProvider(store)
	if err != nil {
		slog.Error("failed to create credential provider", "err", err)
		return handler.ExitInternal
	}
	if err := provider.Load(ctx); err != nil {
		slog.Error("failed to load credentials", "err", err)
		return handler.ExitInternal
	}

	api, err := genie.NewClient(cfg.APIURL,
		genie.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		genie.WithTokenSource(provider),
		genie.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create backend client", "err", err)
		return handler.ExitInternal
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		term:   handler.NewTerminal(os.Stdin, os.Stdout),
		creds:  provider,
		api:    api,
	}
	if err := a.dispatch(ctx, args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
			return handler.ExitValidation
		}
		fmt.Fprintln(os.Stderr, handler.Describe(err))
		return handler.ExitCode(err)
	}
	return handler.ExitOK
}
