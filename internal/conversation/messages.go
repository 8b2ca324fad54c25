package conversation

import (
	"fmt"
	"strings"

	"claims_intake_backend/internal/claims/domain"
)

// User-facing message texts. All copy is Romanian; the bot serves RCA
// claimants in Romania.
const (
	msgGreeting = "Bună ziua! Sunt asistentul digital pentru daune auto. Doriți să deschideți un dosar de daună?"
	msgHandoff  = "Am înțeles. Un coleg din echipa noastră va prelua conversația în cel mai scurt timp."

	msgDocReceived   = "Am primit fișierul și îl analizez. Revin imediat cu statusul dosarului."
	msgVideoReceived = "Am primit videoclipul de la fața locului, mulțumim."
	msgMediaRejected = "Formatul fișierului nu este acceptat. Vă rugăm să trimiteți o poză (JPG/PNG), un PDF sau un videoclip."

	msgExtractionFailed = "Nu am reușit să citesc ultimul document trimis. Vă rugăm să trimiteți o poză mai clară, cu tot documentul în cadru."

	msgResolutionPrompt = "Cum doriți să se facă despăgubirea?"
	msgResolutionSaved  = "Am notat preferința dumneavoastră."

	msgProcessing = "Dosarul dumneavoastră este în lucru la asigurător. Revenim imediat ce primim oferta de despăgubire."

	msgOfferChangedPath = "Am notat noua preferință și am retransmis dosarul către asigurător."
	msgAcceptanceSent   = "Am transmis acceptul dumneavoastră către asigurător. Vă ținem la curent cu plata despăgubirii."
)

var (
	greetingButtons   = []string{"Da, deschide dosar de daună", "Nu, altă întrebare"}
	resolutionButtons = []string{"Service / RAR", "Regie proprie", "Daună totală"}
	offerButtons      = []string{"Accept oferta", "Regie proprie", "Service / RAR", "Daună totală"}
)

func docsReceivedMessage(n int) string {
	if n <= 1 {
		return msgDocReceived
	}
	return fmt.Sprintf("Am primit %d documente și le analizez. Revin imediat cu statusul dosarului.", n)
}

func missingDocsMessage(missing []domain.MissingItem) string {
	var b strings.Builder
	b.WriteString("Pentru dosarul de daună mai avem nevoie de:\n")
	for _, item := range missing {
		b.WriteString("• ")
		b.WriteString(item.Label)
		b.WriteString("\n")
	}
	b.WriteString("Le puteți trimite aici ca poze sau PDF.")
	return b.String()
}

func signMandateMessage(link string) string {
	return fmt.Sprintf("Avem toate documentele necesare! Ultimul pas: semnați mandatul de reprezentare aici:\n%s", link)
}

func offerMessage(offerCents int64) string {
	return fmt.Sprintf(
		"Asigurătorul a transmis o ofertă de despăgubire de %s RON. Acceptați oferta sau preferați altă modalitate de despăgubire?",
		formatLei(offerCents),
	)
}

func formatLei(cents int64) string {
	return fmt.Sprintf("%d,%02d", cents/100, cents%100)
}
