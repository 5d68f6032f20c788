// Copyright (c) 2026 Howkings. All rights reserved.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/howkings/howkings-go/internal/auth"
	"github.com/howkings/howkings-go/internal/platform/apperr"
	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/pkg/pagination"
)

// NewRootCmd assembles the howkings command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "howkings",
		Short:         "Howkings platform client",
		Long:          "Command-line client for the Howkings educational platform: sessions, module requests, and voting.",
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newForgotPasswordCmd(),
		newResetPasswordCmd(),
		newDeleteAccountCmd(),
		newVoteCmd(),
		newRequestCmd(),
		newConsentCmd(),
	)
	return root
}

// Execute runs the CLI and maps errors to exit codes.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if ae := apperr.As(err); ae != nil && len(ae.Details) > 0 {
			for _, detail := range ae.Details {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", detail.Field, detail.Message)
			}
		}
		os.Exit(1)
	}
}

// withApp wires the stack, bootstraps the session, runs fn, and tears down.
func withApp(ctx context.Context, fn func(context.Context, *App) error) error {
	app, err := NewApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Session.Bootstrap(ctx); err != nil {
		return err
	}
	return fn(ctx, app)
}

// # Session Commands

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if err := app.Client.PrimeCSRF(ctx); err != nil {
					app.Logger.Warn("csrf_prime_failed")
				}

				draft := auth.NewLoginDraft(app.Store, app.Logger)
				if email == "" {
					email = draft.Load(ctx)
				}

				user, err := app.Auth.Login(ctx, email, password)
				if err != nil {
					return err
				}
				draft.Save(ctx, email)
				fmt.Printf("Signed in as %s <%s>\n", user.Name, user.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (defaults to the last one used)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var input auth.RegisterInput
	var organization bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Type = auth.AccountIndividual
			if organization {
				input.Type = auth.AccountOrganization
			}

			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if organization && !app.Config.FeatureOrgRegistration {
					return fmt.Errorf("organization registration is not enabled")
				}

				if err := app.Client.PrimeCSRF(ctx); err != nil {
					app.Logger.Warn("csrf_prime_failed")
				}

				user, err := app.Auth.Register(ctx, input)
				if err != nil {
					return err
				}
				fmt.Printf("Registered as %s <%s>\n", user.Name, user.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "First name (individual accounts)")
	cmd.Flags().StringVar(&input.LastName, "last-name", "", "Last name (individual accounts)")
	cmd.Flags().StringVar(&input.OrganizationName, "organization", "", "Organization name (organization accounts)")
	cmd.Flags().StringVarP(&input.Email, "email", "e", "", "Email address")
	cmd.Flags().StringVar(&input.Phone, "phone", "", "Phone number in international format")
	cmd.Flags().StringVarP(&input.Password, "password", "p", "", "Password")
	cmd.Flags().BoolVar(&organization, "org", false, "Register an organization account")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				app.Auth.Logout(ctx)
				return nil
			})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				user := app.Session.CurrentUser()
				if user == nil || !app.Session.IsAuthenticated() {
					fmt.Println("Not signed in")
					return nil
				}
				fmt.Printf("%s <%s> (id %d)\n", user.Name, user.Email, user.ID)
				return nil
			})
		},
	}
}

func newForgotPasswordCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request password reset instructions by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if err := app.Client.PrimeCSRF(ctx); err != nil {
					app.Logger.Warn("csrf_prime_failed")
				}
				return app.Auth.ForgotPassword(ctx, email)
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetPasswordCmd() *cobra.Command {
	var token, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with the emailed reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if err := app.Client.PrimeCSRF(ctx); err != nil {
					app.Logger.Warn("csrf_prime_failed")
				}
				return app.Auth.ResetPassword(ctx, token, password)
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Reset token from the email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newDeleteAccountCmd() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Permanently delete the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to delete without --yes")
			}
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				return app.Auth.DeleteAccount(ctx)
			})
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the deletion")
	return cmd
}

// # Request Pool Commands

func newVoteCmd() *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "vote <module-request-id>",
		Short: "Vote for a module request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid module request id %q", args[0])
			}

			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				return app.Pool.Vote(ctx, id, language)
			})
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "en", "Language to vote for")
	return cmd
}

func newRequestCmd() *cobra.Command {
	request := &cobra.Command{
		Use:   "request",
		Short: "Browse and submit module requests",
	}
	request.AddCommand(newRequestListCmd(), newRequestCreateCmd())
	return request
}

func newRequestListCmd() *cobra.Command {
	var params pagination.Params

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the community request pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				requests, meta, err := app.Pool.List(ctx, params)
				if err != nil {
					return err
				}

				for _, entry := range requests {
					fmt.Printf("#%-4d %-30s [%s] %d votes\n",
						entry.ID, entry.ModuleName, entry.Language, entry.Votes)
				}
				fmt.Printf("page %d/%d, %d total\n", meta.Page, meta.TotalPages, meta.Total)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&params.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&params.Limit, "limit", pagination.DefaultLimit, "Items per page")
	return cmd
}

func newRequestCreateCmd() *cobra.Command {
	var input auth.ModuleRequestInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new module request",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if err := app.Client.PrimeCSRF(ctx); err != nil {
					app.Logger.Warn("csrf_prime_failed")
				}
				return app.Pool.Create(ctx, input)
			})
		},
	}

	cmd.Flags().StringVar(&input.ModuleName, "name", "", "Module name")
	cmd.Flags().StringVar(&input.Description, "description", "", "What the module should cover")
	cmd.Flags().StringVarP(&input.Language, "language", "l", "en", "Module language")
	cmd.Flags().StringSliceVar(&input.Tags, "tag", nil, "Tags (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

// # Consent Commands

func newConsentCmd() *cobra.Command {
	consentCmd := &cobra.Command{
		Use:   "consent",
		Short: "Inspect or record cookie consent",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective consent record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				record := app.Consent.Get(ctx)
				raw, err := json.MarshalIndent(record, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(raw))
				return nil
			})
		},
	}

	var analytics, marketing bool
	set := &cobra.Command{
		Use:   "set",
		Short: "Record a consent decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				return app.Consent.Set(ctx, analytics, marketing)
			})
		},
	}
	set.Flags().BoolVar(&analytics, "analytics", false, "Allow analytics cookies")
	set.Flags().BoolVar(&marketing, "marketing", false, "Allow marketing cookies")

	consentCmd.AddCommand(show, set)
	return consentCmd
}
