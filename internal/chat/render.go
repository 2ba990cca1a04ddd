package chat

import (
	"fmt"
	"strings"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/storage"
)

const (
	msgNoProducts      = "No encontré productos para esa búsqueda."
	msgLoginRequired   = "Para ver tus compras necesitás iniciar sesión."
	msgNoPurchases     = "No encontré compras asociadas a tu cuenta."
	msgProductNotFound = "Producto no encontrado."
	msgInternalError   = "Ocurrió un error procesando tu solicitud."
	msgHelp            = "Puedo buscar productos o ver el estado de tus órdenes. Probá: “¿Tenés aceite 5W40?” o “Mis últimas compras”."
)

const dateLayout = "2006-01-02"

func orderNotFound(id string) string {
	return fmt.Sprintf("No encontré la orden %s.", id)
}

func noOrdersForEmail(email string) string {
	return fmt.Sprintf("No encontré órdenes para %s.", email)
}

// renderProducts writes one bullet per item:
// "• <name> (<brand>) — $<price> — stock: <n>".
func renderProducts(items []storage.Product) string {
	lines := make([]string, 0, len(items))
	for _, p := range items {
		var b strings.Builder
		b.WriteString("• ")
		b.WriteString(p.Name)
		if p.Brand != "" {
			fmt.Fprintf(&b, " (%s)", p.Brand)
		}
		fmt.Fprintf(&b, " — $%.2f — stock: %d", p.Price, p.Stock)
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func renderOrder(o *storage.Order) string {
	return strings.Join([]string{
		"Orden " + o.ID,
		"Estado: " + string(o.Status),
		"Pago: " + string(o.PaymentStatus),
		"Fecha: " + formatDate(o),
		fmt.Sprintf("Total: $%.2f", o.Total()),
	}, "\n")
}

func renderOrderList(list []storage.Order) string {
	lines := make([]string, 0, len(list))
	for i := range list {
		o := &list[i]
		lines = append(lines, fmt.Sprintf("• %s — %s — %s", o.ID, o.Status, formatDate(o)))
	}
	return strings.Join(lines, "\n")
}

func renderRating(p *storage.Product) string {
	return fmt.Sprintf("⭐ %.1f (%d reseñas) — %s", p.RatingAvg, p.RatingCount, p.Name)
}

func formatDate(o *storage.Order) string {
	if o.CreatedAt.IsZero() {
		return ""
	}
	return o.CreatedAt.UTC().Format(dateLayout)
}
