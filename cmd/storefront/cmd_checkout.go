package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/you/storefront/domain"
	"github.com/you/storefront/internal/http/apiclient"
	"github.com/you/storefront/internal/services"
)

var (
	checkoutAddress uint
	checkoutPhone   string
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Place an order for the cart, confirmed by an emailed OTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		co, err := container.Checkout.Begin(ctx)
		if errors.Is(err, domain.ErrCheckoutRedirect) {
			fmt.Fprintln(out, "Nothing to check out: sign in and add items to your cart first.")
			return nil
		}
		if err != nil {
			return errors.New(domain.UserMessage(err))
		}

		if checkoutAddress != 0 {
			if err := co.SelectAddress(checkoutAddress); err != nil {
				return err
			}
		}
		if _, err := co.ResolveContactPhone(checkoutPhone == "", checkoutPhone); err != nil {
			return fmt.Errorf("%w: pass --phone or add one to your profile", err)
		}

		fmt.Fprintf(out, "Total: %s, shipping to address %d\n",
			services.FormatPrice(container.Cart.TotalPrice()), co.SelectedAddress())

		msg, err := co.RequestOTP(ctx)
		if err != nil {
			return errors.New(domain.UserMessage(err))
		}
		if msg != "" {
			fmt.Fprintln(out, msg)
		}

		reader := bufio.NewReader(cmd.InOrStdin())
		for co.State() == domain.CheckoutOTPRequested {
			fmt.Fprint(out, "Enter OTP: ")
			code, err := reader.ReadString('\n')
			if err != nil {
				co.Abandon()
				return fmt.Errorf("read otp: %w", err)
			}
			if err := co.VerifyOTP(ctx, strings.TrimSpace(code)); err != nil {
				fmt.Fprintln(out, domain.UserMessage(err))
			}
		}

		order, err := co.PlaceOrder(ctx)
		if err != nil {
			return placeOrderError(err)
		}

		fmt.Fprintf(out, "Order #%d placed (%s).\n", order.ID, order.Status)
		return nil
	},
}

// placeOrderError maps a placement failure to the message shown on exit.
// A timed out request may still have created the order on the backend.
func placeOrderError(err error) error {
	switch {
	case errors.Is(err, domain.ErrVerificationLapsed):
		return errors.New("verification expired, run checkout again")
	case apiclient.IsTimeout(err):
		return errors.New("order placement timed out; the order may have been created, check `storefront order` before retrying")
	default:
		return errors.New(domain.UserMessage(err))
	}
}

var orderCmd = &cobra.Command{
	Use:   "order ORDER_ID",
	Short: "Show an order confirmation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		order, err := container.Checkout.OrderConfirmation(cmd.Context(), id)
		if err != nil {
			return errors.New(domain.UserMessage(err))
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Order #%d: %s, total %s\n", order.ID, order.Status, order.TotalAmount)
		for _, item := range order.Items {
			fmt.Fprintf(out, "  %d x %s @ %s\n", item.Quantity, item.Name, item.Price)
		}
		return nil
	},
}

func init() {
	checkoutCmd.Flags().UintVar(&checkoutAddress, "address", 0, "address id (default: the default address)")
	checkoutCmd.Flags().StringVar(&checkoutPhone, "phone", "", "contact phone (default: profile phone)")
}
