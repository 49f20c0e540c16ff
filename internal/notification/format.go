package notification

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"storefront/internal/model"
)

const dateLayout = "2006-01-02 15:04"

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// AccountCreatedMessage tells a guest buyer about the account opened for them.
func AccountCreatedMessage(email, tempPassword string) Message {
	var b strings.Builder
	b.WriteString("Welcome!\n\n")
	b.WriteString("An account was created for you while placing your order.\n\n")
	fmt.Fprintf(&b, "Login: %s\n", email)
	fmt.Fprintf(&b, "Temporary password: %s\n\n", tempPassword)
	b.WriteString("Please sign in and change your password.\n")

	return Message{To: email, Subject: "Your new account", Body: b.String()}
}

// OrderConfirmedMessage summarises a committed order.
func OrderConfirmedMessage(email string, order model.Order, items []model.OrderItem) Message {
	var b strings.Builder
	b.WriteString("Thank you for your order!\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", order.ID)
	fmt.Fprintf(&b, "Order date: %s\n", order.PurchaseDate.Format(dateLayout))
	fmt.Fprintf(&b, "Shipping address: %s\n\n", formatAddress(order.Shipping))

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Product\tQuantity\tPrice")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", item.VariantName, item.Quantity, item.Price.StringFixed(2))
	}
	_ = tw.Flush()

	fmt.Fprintf(&b, "\nTotal: %s\n", order.TotalAmount.StringFixed(2))
	if order.CouponCode != "" {
		fmt.Fprintf(&b, "Coupon: %s\n", order.CouponCode)
	}

	return Message{
		To:      email,
		Subject: fmt.Sprintf("Order confirmation %s", order.ID),
		Body:    b.String(),
	}
}

func formatAddress(a model.ShippingAddress) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.AddressDetail, a.Ward, a.District, a.Province} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
