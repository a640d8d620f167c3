package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/client"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/listing"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

// renderRows prints the list with a marker column: x expired or used, ! expiring soon.
func renderRows(out io.Writer, rows []listing.Row) {
	w := newTable(out)
	fmt.Fprintln(w, "\tID\tNAME\tDISCOUNT\tEXPIRES\tSTORE\tSTATUS\tOWNER")
	for _, r := range rows {
		c := r.Coupon
		owner := r.Owner
		if r.OwnerSource == listing.OwnerOverride {
			owner += " (local)"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			marker(r.Tint), c.ID, c.Name, c.Discount, c.ExpirationDate, c.Store, c.Status, owner)
	}
	_ = w.Flush()
}

func marker(t listing.Tint) string {
	switch t {
	case listing.TintMuted:
		return "x"
	case listing.TintWarning:
		return "!"
	default:
		return ""
	}
}

func renderCoupons(out io.Writer, coupons []client.Coupon) {
	w := newTable(out)
	fmt.Fprintln(w, "ID\tNAME\tEXPIRES\tSTORE\tSTATUS\tCODE")
	for _, c := range coupons {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.ExpirationDate, c.Store, c.Status, c.Code)
	}
	_ = w.Flush()
}

func renderCoupon(out io.Writer, c client.Coupon) {
	w := newTable(out)
	price := ""
	if c.StandardPrice.Valid {
		price = c.StandardPrice.Decimal.String()
	}
	for _, kv := range [][2]string{
		{"id", fmt.Sprint(c.ID)},
		{"name", c.Name},
		{"discount", c.Discount},
		{"expiration_date", c.ExpirationDate},
		{"store", c.Store},
		{"status", c.Status},
		{"code", c.Code},
		{"standard_price", price},
		{"registered_by", c.RegisteredBy},
		{"payment_status", c.PaymentStatus},
		{"issuer", strings.TrimSpace(c.IssuerName + " " + bracket(c.IssuerEmail))},
		{"team_id", c.TeamID},
		{"additional_info", c.AdditionalInfo},
	} {
		fmt.Fprintf(w, "%s\t%s\n", kv[0], kv[1])
	}
	_ = w.Flush()
}

func bracket(s string) string {
	if s == "" {
		return ""
	}
	return "<" + s + ">"
}

func renderIssuers(out io.Writer, issuers []client.Issuer) {
	w := newTable(out)
	fmt.Fprintln(w, "EMAIL\tNAME\tPHONE\tCOUPONS")
	for _, i := range issuers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", i.Email, i.Name, i.Phone, i.CouponCount)
	}
	_ = w.Flush()
}

func renderOptions(out io.Writer, o listing.Options) {
	fmt.Fprintf(out, "coupon names: %s\n", strings.Join(o.CouponNames, ", "))
	fmt.Fprintf(out, "stores: %s\n", strings.Join(o.Stores, ", "))
	emails := make([]string, len(o.Issuers))
	for i, iss := range o.Issuers {
		emails[i] = iss.Email
	}
	fmt.Fprintf(out, "issuers: %s\n", strings.Join(emails, ", "))
}

func renderGroupStats(out io.Writer, title string, rows []client.GroupStat, rates bool) {
	w := newTable(out)
	header := title + "\tTOTAL\tUSED\tEXPIRED\tAVAILABLE"
	if rates {
		header += "\tREGISTERED\tPAID"
	}
	fmt.Fprintln(w, header)
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d", r.Name, r.Total, r.Used, r.Expired, r.Available)
		if rates {
			fmt.Fprintf(w, "\t%d (%.1f%%)\t%d (%.1f%%)", r.RegisteredCount, r.RegistrationRate, r.PaymentCompletedCount, r.PaymentCompletionRate)
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
}
