package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"
	"github.com/nikolayk812/cartstore/internal/config"
	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/nikolayk812/cartstore/internal/render"
	"github.com/nikolayk812/cartstore/internal/search"
	"github.com/nikolayk812/cartstore/internal/share"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type appKey struct{}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

// run executes one cartctl invocation and closes the app it built, also when
// the command fails.
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	var a *app

	root := newRootCmd(&a)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if a != nil {
		err = errors.Join(err, a.Close())
	}

	return err
}

func newRootCmd(built **app) *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Manage the local shopping cart",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), f, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			*built = a
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&f.configPath, "config", "cartstore.yaml", "config file path")
	root.PersistentFlags().StringVar(&f.profile, "profile", "", "storage profile (overrides config)")
	root.PersistentFlags().StringVar(&f.backend, "backend", "", "storage backend: memory, sqlite, postgres, redis")

	root.AddCommand(
		newAddCmd(),
		newUpdateCmd(),
		newRemoveCmd(),
		newClearCmd(),
		newListCmd(),
		newTotalCmd(),
		newCountCmd(),
		newWishlistCmd(),
		newSuggestCmd(),
		newShareCmd(),
		newConfigCmd(&f),
	)

	return root
}

func newConfigCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
		// no storage is opened for config commands
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	var force bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(f.configPath); err == nil && !force {
				return fmt.Errorf("config[%s] already exists, use --force to overwrite", f.configPath)
			}

			cfg := config.DefaultConfig()
			if f.profile != "" {
				cfg.Profile = f.profile
			}
			if f.backend != "" {
				cfg.Storage.Backend = f.backend
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("cfg.Validate: %w", err)
			}

			if err := cfg.Save(f.configPath); err != nil {
				return fmt.Errorf("cfg.Save: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), f.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)

	return cmd
}

func newAddCmd() *cobra.Command {
	var (
		name     string
		price    string
		image    string
		quantity int
	)

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart, merging with an existing line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("price[%s] is not valid: %w", price, err)
			}

			return appFrom(cmd).cart.Add(cmd.Context(), args[0], name, amount, image, quantity)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&price, "price", "0", "unit price")
	cmd.Flags().StringVar(&image, "image", "", "image reference")
	cmd.Flags().IntVar(&quantity, "qty", 1, "quantity to add")

	return cmd
}

// lineTarget addresses a cart line either by its 1-based position or by line id.
type lineTarget struct {
	lineID string
}

func (l *lineTarget) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&l.lineID, "line", "", "line id instead of position")
}

func (l *lineTarget) resolve(args []string) (index int, lineID uuid.UUID, byLine bool, err error) {
	if l.lineID != "" {
		lineID, err = uuid.Parse(l.lineID)
		if err != nil {
			return 0, uuid.Nil, false, fmt.Errorf("line[%s] is not valid: %w", l.lineID, err)
		}
		return 0, lineID, true, nil
	}

	if len(args) != 1 {
		return 0, uuid.Nil, false, errors.New("either <position> or --line is required")
	}

	position, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, uuid.Nil, false, fmt.Errorf("position[%s] is not a number: %w", args[0], err)
	}

	return position - 1, uuid.Nil, false, nil
}

func newUpdateCmd() *cobra.Command {
	var (
		target lineTarget
		delta  int
		set    int
	)

	cmd := &cobra.Command{
		Use:   "update [position]",
		Short: "Change the quantity of a cart line (never below 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, lineID, byLine, err := target.resolve(args)
			if err != nil {
				return err
			}

			store := appFrom(cmd).cart
			ctx := cmd.Context()
			absolute := cmd.Flags().Changed("set")

			switch {
			case byLine && absolute:
				return store.SetQuantityByLine(ctx, lineID, set)
			case byLine:
				return store.UpdateQuantityByLine(ctx, lineID, delta)
			case absolute:
				return store.SetQuantity(ctx, index, set)
			default:
				return store.UpdateQuantity(ctx, index, delta)
			}
		},
	}

	target.register(cmd)
	cmd.Flags().IntVar(&delta, "delta", 1, "amount to add, may be negative")
	cmd.Flags().IntVar(&set, "set", 1, "absolute quantity")
	cmd.MarkFlagsMutuallyExclusive("delta", "set")

	return cmd
}

func newRemoveCmd() *cobra.Command {
	var target lineTarget

	cmd := &cobra.Command{
		Use:   "remove [position]",
		Short: "Remove a line from the cart",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, lineID, byLine, err := target.resolve(args)
			if err != nil {
				return err
			}

			store := appFrom(cmd).cart
			if byLine {
				return store.RemoveLine(cmd.Context(), lineID)
			}
			return store.RemoveItem(cmd.Context(), index)
		},
	}

	target.register(cmd)

	return cmd
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every line from the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return appFrom(cmd).cart.Clear(cmd.Context())
		},
	}
}

func newListCmd() *cobra.Command {
	var showLines bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Render the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)

			items, err := a.cart.Items(cmd.Context())
			if err != nil {
				return err
			}

			out, err := render.Format(domain.Cart{Items: items}, a.currency)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, out)

			if showLines {
				for i, item := range items {
					fmt.Fprintf(a.out, "%d\t%s\t%s\n", i+1, item.LineID, item.ProductID)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&showLines, "lines", false, "also print line ids")

	return cmd
}

func newTotalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Print the cart total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)

			total, err := a.cart.Total(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, total.String())
			return nil
		},
	}
}

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of cart lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)

			count, err := a.cart.Count(cmd.Context())
			if err != nil {
				return err
			}

			render.NewCount(a.out).ShowCount(cmd.Context(), count)
			return nil
		},
	}
}

func newWishlistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Manage the wishlist",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <product-id>",
			Short: "Add a product to the wishlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := appFrom(cmd).wishlist.Add(cmd.Context(), args[0])
				return err
			},
		},
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a product from the wishlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := appFrom(cmd).wishlist.Remove(cmd.Context(), args[0])
				return err
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "Print wishlist product ids",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a := appFrom(cmd)

				ids, err := a.wishlist.List(cmd.Context())
				if err != nil {
					return err
				}

				for _, id := range ids {
					fmt.Fprintln(a.out, id)
				}
				return nil
			},
		},
	)

	return cmd
}

func newSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest [query...]",
		Short: "Fetch search suggestions, defaulting to the last search",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()

			query := strings.Join(args, " ")
			if query == "" {
				last, err := a.history.Last(ctx)
				if err != nil {
					return err
				}
				query = last
			}
			if query == "" {
				return errors.New("query is empty and there is no previous search")
			}
			if min := a.cfg.Search.MinQueryLength; utf8.RuneCountInString(query) < min {
				return fmt.Errorf("query must be at least %d characters", min)
			}

			if err := a.history.Remember(ctx, query); err != nil {
				return err
			}

			client, err := search.NewClient(a.cfg.Search.BaseURL, a.cfg.SearchTimeout())
			if err != nil {
				return err
			}

			results := make(chan []search.Suggestion, 1)
			debouncer := search.NewDebouncer(client.Suggest,
				func(_ string, suggestions []search.Suggestion) { results <- suggestions },
				search.WithDelay(a.cfg.SearchDebounce()),
				search.WithMinQueryLength(a.cfg.Search.MinQueryLength),
				search.WithLogger(a.logger.Named("search")),
			)

			debouncer.Input(query)
			var suggestions []search.Suggestion
			select {
			case suggestions = <-results:
			case <-ctx.Done():
			case <-time.After(a.cfg.SearchDebounce() + a.cfg.SearchTimeout()):
			}
			debouncer.Close()

			if len(suggestions) == 0 {
				a.logger.Debug("no suggestions", zap.String("query", query))
				return nil
			}

			for _, s := range suggestions {
				fmt.Fprintf(a.out, "%s\t%s\t%s %s\n", s.ID, s.Name, s.Price.StringFixed(2), a.currency)
			}
			return nil
		},
	}
}

func newShareCmd() *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "share <product-id>",
		Short: "Build a share link for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			link, err := share.URL(a.cfg.Share.Origin, args[0], share.Platform(platform))
			if err != nil {
				return err
			}

			if link.Copy {
				if err := clipboard.WriteAll(link.URL); err != nil {
					a.logger.Warn("copy link to clipboard", zap.Error(err))
					fmt.Fprintln(a.out, link.URL)
					return nil
				}
				a.notifier.Notify(cmd.Context(), "Product link copied", domain.SeveritySuccess)
				return nil
			}

			fmt.Fprintln(a.out, link.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", string(share.Copy), "facebook, twitter, whatsapp or copy")

	return cmd
}
