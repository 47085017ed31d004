package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timothe-chaumont/automatic-receipts/internal/order"
)

func testMailer() *Mailer {
	return NewMailer("smtp.gmail.com", 465, "csdesign@example.fr", "secret",
		"Camille Durand", "+33 6 00 00 00 00")
}

func TestBodyAssociation(t *testing.T) {
	body := testMailer().body(Notification{
		RecipientName:     "Hyris",
		RecipientCategory: order.CategoryAssociation,
		FirstName:         "Camille",
		Orders: []OrderSummary{
			{Date: "01/03/2024", Description: "Affiches soirée", TotalPrice: "8,00€"},
			{Date: "05/03/2024", Description: "Stickers", TotalPrice: "1,50€"},
		},
	})

	assert.Contains(t, body, "Hello Camille,")
	assert.Contains(t, body, "2 prestation(s) ont été réalisées par CS Design pour l'association Hyris :")
	assert.Contains(t, body, "- 01/03/2024 : Affiches soirée, 8,00€")
	assert.Contains(t, body, "- 05/03/2024 : Stickers, 1,50€")
	assert.Contains(t, body, "Tu trouveras en pièces jointes")
	assert.Contains(t, body, "Camille Durand\nTrésorier de CS Design\n+33 6 00 00 00 00")
}

func TestBodyInternalStudent(t *testing.T) {
	body := testMailer().body(Notification{
		RecipientName:     "Jean Dupont",
		RecipientCategory: order.CategoryInternal,
		Orders:            []OrderSummary{{Date: "02/03/2024", Description: "T-shirts", TotalPrice: "12,00€"}},
	})

	assert.Contains(t, body, "Hello Jean Dupont,")
	assert.Contains(t, body, "pour toi :")
	assert.Contains(t, body, "Tu trouveras en pièces jointes")
}

func TestBodyExternalClient(t *testing.T) {
	body := testMailer().body(Notification{
		RecipientName:     "Mairie de Gif",
		RecipientCategory: order.CategoryExternal,
		Orders:            []OrderSummary{{Date: "03/03/2024", Description: "Affiches A2", TotalPrice: "4,00€"}},
	})

	assert.Contains(t, body, "Bonjour,")
	assert.Contains(t, body, "pour Mairie de Gif :")
	assert.Contains(t, body, "Vous trouverez en pièces jointes")
	assert.Contains(t, body, "Cordialement,")
	assert.NotContains(t, body, "Hello")
}
