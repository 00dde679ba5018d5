package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/you/storefront/domain"
	"github.com/you/storefront/internal/services"
)

var (
	addQuantity int
	addSize     string
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and change the server cart",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if !container.Session.Snapshot().IsAuthenticated {
			return domain.ErrNotAuthenticated
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		printCart(cmd)
		return nil
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add PRODUCT_ID",
	Short: "Add a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, err := parseID(args[0])
		if err != nil {
			return err
		}
		var size *string
		if addSize != "" {
			size = &addSize
		}
		return cartResult(cmd, container.Cart.Add(cmd.Context(), productID, addQuantity, size))
	},
}

var cartUpdateCmd = &cobra.Command{
	Use:   "update ITEM_ID QUANTITY",
	Short: "Change the quantity of a line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, err := parseID(args[0])
		if err != nil {
			return err
		}
		quantity, err := strconv.Atoi(args[1])
		if err != nil || quantity < 1 {
			return domain.ErrInvalidQuantity
		}
		return cartResult(cmd, container.Cart.UpdateQuantity(cmd.Context(), itemID, quantity))
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove ITEM_ID",
	Short: "Remove a line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, err := parseID(args[0])
		if err != nil {
			return err
		}
		return cartResult(cmd, container.Cart.Remove(cmd.Context(), itemID))
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every line (best effort)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cartResult(cmd, container.Cart.Clear(cmd.Context()))
	},
}

func cartResult(cmd *cobra.Command, ok bool) error {
	printCart(cmd)
	if !ok {
		return errors.New("cart update failed")
	}
	return nil
}

func printCart(cmd *cobra.Command) {
	items := container.Cart.Items()
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "Cart is empty.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tPRODUCT\tSIZE\tQTY\tUNIT")
	for _, item := range items {
		size := "-"
		if item.Size != nil {
			size = *item.Size
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
			item.ID, item.Product.Name, size, item.Quantity,
			services.FormatPrice(services.UnitPrice(item.Product)))
	}
	w.Flush()
	fmt.Fprintf(out, "%d item(s), total %s\n", container.Cart.TotalItems(), services.FormatPrice(container.Cart.TotalPrice()))
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func init() {
	cartAddCmd.Flags().IntVarP(&addQuantity, "quantity", "q", 1, "quantity to add")
	cartAddCmd.Flags().StringVar(&addSize, "size", "", "product size")

	cartCmd.AddCommand(cartAddCmd, cartUpdateCmd, cartRemoveCmd, cartClearCmd)
}
