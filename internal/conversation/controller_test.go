package conversation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"claims_intake_backend/internal/claims/domain"
	"claims_intake_backend/internal/claims/repository"
	"claims_intake_backend/internal/events"
	"claims_intake_backend/internal/extraction"
	"claims_intake_backend/platform/logger"
)

// ---- fakes ----

type fakeStore struct {
	client             domain.Client
	cases              map[uuid.UUID]*domain.Case
	messages           []domain.Message
	documents          []domain.Document
	damagePhotos       int
	pendingExtractions int
	seen               map[string]bool
	nextMsgID          int64
}

func newFakeStore(c domain.Case) *fakeStore {
	client := domain.Client{ID: c.ClientID, PhoneNumber: "+40722000111"}
	return &fakeStore{
		client: client,
		cases:  map[uuid.UUID]*domain.Case{c.ID: &c},
		seen:   map[string]bool{},
	}
}

func (s *fakeStore) WithCase(ctx context.Context, caseID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx, c domain.Case) error) error {
	c, ok := s.cases[caseID]
	if !ok {
		return repository.ErrCaseNotFound
	}
	return fn(ctx, nil, *c)
}

func (s *fakeStore) GetOrCreateClientByPhone(ctx context.Context, phone string) (domain.Client, error) {
	return s.client, nil
}

func (s *fakeStore) GetClient(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	return s.client, nil
}

func (s *fakeStore) GetOrCreateActiveCase(ctx context.Context, clientID uuid.UUID, channel domain.Channel) (domain.Case, bool, error) {
	for _, c := range s.cases {
		if c.Stage != domain.StageClosed {
			return *c, false, nil
		}
	}
	c := domain.Case{ID: uuid.New(), ClientID: clientID, Stage: domain.StageGreeting, Resolution: domain.ResolutionUndecided, LastChannel: channel}
	s.cases[c.ID] = &c
	return c, true, nil
}

func (s *fakeStore) GetCase(ctx context.Context, id uuid.UUID) (domain.Case, error) {
	c, ok := s.cases[id]
	if !ok {
		return domain.Case{}, repository.ErrCaseNotFound
	}
	return *c, nil
}

func (s *fakeStore) UpdateCase(ctx context.Context, q repository.Querier, c domain.Case) error {
	stored := *s.cases[c.ID]
	if err := domain.CanTransition(stored.Stage, c.Stage); err != nil {
		return err
	}
	s.cases[c.ID] = &c
	return nil
}

func (s *fakeStore) AppendMessage(ctx context.Context, q repository.Querier, m domain.Message) (domain.Message, error) {
	s.nextMsgID++
	m.ID = s.nextMsgID
	m.CreatedAt = time.Now()
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *fakeStore) ListMessages(ctx context.Context, caseID uuid.UUID, afterID int64, limit int) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range s.messages {
		if m.CaseID == caseID && m.ID > afterID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateDocument(ctx context.Context, q repository.Querier, d domain.Document) (domain.Document, error) {
	d.UploadedAt = time.Now()
	s.documents = append(s.documents, d)
	return d, nil
}

func (s *fakeStore) CountDamagePhotos(ctx context.Context, q repository.Querier, caseID uuid.UUID) (int, error) {
	return s.damagePhotos, nil
}

func (s *fakeStore) CountPendingExtractions(ctx context.Context, q repository.Querier, caseID uuid.UUID) (int, error) {
	return s.pendingExtractions, nil
}

func (s *fakeStore) MarkInboundSeen(ctx context.Context, providerMessageID string) (bool, error) {
	if providerMessageID == "" {
		return true, nil
	}
	if s.seen[providerMessageID] {
		return false, nil
	}
	s.seen[providerMessageID] = true
	return true, nil
}

func (s *fakeStore) Pool() repository.Querier { return nil }

func (s *fakeStore) outbound() []domain.Message {
	var out []domain.Message
	for _, m := range s.messages {
		if m.Direction == domain.DirectionOut {
			out = append(out, m)
		}
	}
	return out
}

type fakeDeliverer struct {
	delivered []domain.Message
	fail      bool
}

func (d *fakeDeliverer) Deliver(ctx context.Context, client domain.Client, msg domain.Message) error {
	if d.fail {
		return errors.New("relay unreachable")
	}
	d.delivered = append(d.delivered, msg)
	return nil
}

type fakeEnqueuer struct {
	payloads []extraction.ExtractDocumentPayload
}

func (e *fakeEnqueuer) EnqueueExtraction(ctx context.Context, p extraction.ExtractDocumentPayload) error {
	e.payloads = append(e.payloads, p)
	return nil
}

type fakeUploader struct {
	uploads int
	failFor string
}

func (u *fakeUploader) UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	if u.failFor != "" && fileName == u.failFor {
		return "", fmt.Errorf("storage unavailable")
	}
	u.uploads++
	return folder + "/" + fileName, nil
}

func (u *fakeUploader) ValidateContentType(contentType string) error {
	switch contentType {
	case "image/jpeg", "image/png", "application/pdf", "video/mp4":
		return nil
	}
	return fmt.Errorf("unsupported content type: %s", contentType)
}

func (u *fakeUploader) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes > 50<<20 {
		return fmt.Errorf("file too large")
	}
	return nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(eventName string, handler events.Handler) {}

type testConfig struct{}

func (testConfig) GetDamagePhotoThreshold() int          { return 4 }
func (testConfig) GetSignBaseURL() string                { return "https://app.example.ro" }
func (testConfig) GetSessionTTL() time.Duration          { return time.Hour }
func (testConfig) GetInsurerEventSecret() string         { return "secret" }
func (testConfig) GetMinIOEndpoint() string              { return "" }
func (testConfig) GetMinIOAccessKey() string             { return "" }
func (testConfig) GetMinIOSecretKey() string             { return "" }
func (testConfig) GetMinIOUseSSL() bool                  { return false }
func (testConfig) GetMinIOMaxFileSize() int64            { return 50 << 20 }
func (testConfig) GetMinioBucketCaseDocuments() string   { return "case-documents" }
func (testConfig) IsMinIOEnabled() bool                  { return true }

type harness struct {
	store    *fakeStore
	deliver  *fakeDeliverer
	enqueue  *fakeEnqueuer
	uploader *fakeUploader
	ctrl     *Controller
	caseID   uuid.UUID
}

func newHarness(t *testing.T, c domain.Case) *harness {
	t.Helper()
	store := newFakeStore(c)
	deliver := &fakeDeliverer{}
	enqueue := &fakeEnqueuer{}
	uploader := &fakeUploader{}
	ctrl := NewController(testConfig{}, store, deliver, enqueue, uploader, nil, logger.New("development"))
	return &harness{store: store, deliver: deliver, enqueue: enqueue, uploader: uploader, ctrl: ctrl, caseID: c.ID}
}

func caseAt(stage domain.Stage) domain.Case {
	return domain.Case{
		ID:          uuid.New(),
		ClientID:    uuid.New(),
		Stage:       stage,
		Resolution:  domain.ResolutionUndecided,
		LastChannel: domain.ChannelWhatsApp,
	}
}

func lastDelivered(t *testing.T, d *fakeDeliverer) domain.Message {
	t.Helper()
	if len(d.delivered) == 0 {
		t.Fatal("expected at least one delivered message")
	}
	return d.delivered[len(d.delivered)-1]
}

// ---- tests ----

func TestHandleText_GreetingAffirmOpensChecklist(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageGreeting))

	err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "Da, deschide dosar de daună", "wamid.1")
	if err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	c := *h.store.cases[h.caseID]
	if c.Stage != domain.StageCollectingDocs {
		t.Fatalf("stage = %s, want COLLECTING_DOCS", c.Stage)
	}
	if len(h.deliver.delivered) != 2 {
		t.Fatalf("expected document instructions plus resolution prompt, got %d messages", len(h.deliver.delivered))
	}
	docs := h.deliver.delivered[0]
	if !strings.Contains(docs.Content, "Buletin") || !strings.Contains(docs.Content, "Talon") {
		t.Fatalf("expected missing document list, got %q", docs.Content)
	}
	prompt := h.deliver.delivered[1]
	if prompt.Content != msgResolutionPrompt || len(prompt.Buttons) != 3 {
		t.Fatalf("expected resolution prompt with buttons, got %q (%d buttons)", prompt.Content, len(prompt.Buttons))
	}
}

func TestHandleText_GreetingDeclineHandsOffToHuman(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageGreeting))

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "Nu, altă întrebare", "wamid.1"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	c := *h.store.cases[h.caseID]
	if !c.IsHumanManaged {
		t.Fatal("expected case to be human managed after decline")
	}
	if got := lastDelivered(t, h.deliver).Content; got != msgHandoff {
		t.Fatalf("delivered %q, want handoff message", got)
	}
}

func TestHandleText_AmbiguousGreetingReprompts(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageGreeting))

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "buna ziua", "wamid.1"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	if c := *h.store.cases[h.caseID]; c.Stage != domain.StageGreeting {
		t.Fatalf("stage = %s, want GREETING", c.Stage)
	}
	msg := lastDelivered(t, h.deliver)
	if msg.Content != msgGreeting || len(msg.Buttons) != 2 {
		t.Fatalf("expected greeting re-prompt with buttons, got %q (%d buttons)", msg.Content, len(msg.Buttons))
	}
}

func TestHandleText_HumanManagedPersistsButStaysSilent(t *testing.T) {
	c := caseAt(domain.StageCollectingDocs)
	c.IsHumanManaged = true
	h := newHarness(t, c)

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "mai am o intrebare", "wamid.1"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	if len(h.deliver.delivered) != 0 {
		t.Fatalf("expected no outbound messages, got %d", len(h.deliver.delivered))
	}
	if len(h.store.messages) != 1 || h.store.messages[0].Direction != domain.DirectionIn {
		t.Fatalf("expected exactly the inbound message to be logged, got %d messages", len(h.store.messages))
	}
}

func TestHandleText_RedeliveryIsDropped(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageGreeting))

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "da", "wamid.dup"); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	logged := len(h.store.messages)

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "da", "wamid.dup"); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if len(h.store.messages) != logged {
		t.Fatalf("redelivery appended messages: %d -> %d", logged, len(h.store.messages))
	}
}

func TestHandleText_ChecklistDeferredWhileExtractionsPending(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageCollectingDocs))
	h.store.pendingExtractions = 2

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "care e statusul?", "wamid.1"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	if got := lastDelivered(t, h.deliver).Content; got != msgStillProcessing {
		t.Fatalf("delivered %q, want still-processing note", got)
	}
}

func TestHandleText_CompleteChecklistPromptsForResolution(t *testing.T) {
	c := caseAt(domain.StageCollectingDocs)
	c.HasIDCard = true
	c.HasCarCoupon = true
	c.HasAccidentReport = true
	c.HasSceneVideo = true
	h := newHarness(t, c)

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "am trimis tot", "wamid.1"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	msg := lastDelivered(t, h.deliver)
	if msg.Content != msgResolutionPrompt {
		t.Fatalf("delivered %q, want resolution prompt", msg.Content)
	}
	if len(msg.Buttons) != 3 {
		t.Fatalf("expected 3 resolution buttons, got %d", len(msg.Buttons))
	}
}

func TestHandleText_ResolutionChoiceClosesChecklistAndSendsSignLink(t *testing.T) {
	c := caseAt(domain.StageCollectingDocs)
	c.HasIDCard = true
	c.HasCarCoupon = true
	c.HasAccidentReport = true
	c.HasSceneVideo = true
	h := newHarness(t, c)

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "Daună totală", "wamid.1"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	stored := *h.store.cases[h.caseID]
	if stored.Resolution != domain.ResolutionTotalLoss {
		t.Fatalf("resolution = %s, want TOTAL_LOSS", stored.Resolution)
	}
	if stored.Stage != domain.StageSigningMandate {
		t.Fatalf("stage = %s, want SIGNING_MANDATE", stored.Stage)
	}
	msg := lastDelivered(t, h.deliver)
	if !strings.Contains(msg.Content, "https://app.example.ro/mandat/semneaza/") {
		t.Fatalf("expected sign link, got %q", msg.Content)
	}
}

func TestHandleText_ServiceRARChoiceHandsOffToHuman(t *testing.T) {
	c := caseAt(domain.StageCollectingDocs)
	h := newHarness(t, c)

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "Service / RAR", "wamid.1"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	stored := *h.store.cases[h.caseID]
	if stored.Resolution != domain.ResolutionServiceRAR {
		t.Fatalf("resolution = %s, want SERVICE_RAR", stored.Resolution)
	}
	if !stored.IsHumanManaged {
		t.Fatal("expected RAR path to hand the case to a human")
	}
	if got := lastDelivered(t, h.deliver).Content; got != msgHandoff {
		t.Fatalf("delivered %q, want handoff message", got)
	}
}

func TestHandleText_OwnRegimeReopensChecklistForBankStatement(t *testing.T) {
	c := caseAt(domain.StageCollectingDocs)
	c.HasIDCard = true
	c.HasCarCoupon = true
	c.HasAccidentReport = true
	c.HasSceneVideo = true
	h := newHarness(t, c)

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "Regie proprie", "wamid.1"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	stored := *h.store.cases[h.caseID]
	if stored.Stage != domain.StageCollectingDocs {
		t.Fatalf("stage = %s, want COLLECTING_DOCS", stored.Stage)
	}
	msg := lastDelivered(t, h.deliver)
	if !strings.Contains(msg.Content, "Extras de cont") {
		t.Fatalf("expected bank statement request, got %q", msg.Content)
	}
}

func TestHandleText_ProcessingInsurerRelaysMessage(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageProcessingInsurer))
	bus := &recordingBus{}
	h.ctrl.bus = bus

	err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "Aveți vreo veste de la asigurător?", "wamid.77")
	if err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	if got := lastDelivered(t, h.deliver).Content; got != msgProcessing {
		t.Fatalf("reply = %q, want processing notice", got)
	}
	var relays []events.InsurerRelayRequested
	for _, e := range bus.published {
		if r, ok := e.(events.InsurerRelayRequested); ok {
			relays = append(relays, r)
		}
	}
	if len(relays) != 1 {
		t.Fatalf("published %d relay events, want 1", len(relays))
	}
	if relays[0].CaseID != h.caseID || !strings.Contains(relays[0].Text, "asigurător") {
		t.Fatalf("unexpected relay event: %+v", relays[0])
	}
}

func TestHandleText_OfferAcceptGoesBackToInsurer(t *testing.T) {
	c := caseAt(domain.StageOfferDecision)
	offer := int64(450000)
	c.OfferCents = &offer
	h := newHarness(t, c)

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "Accept oferta", "wamid.1"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	if stored := *h.store.cases[h.caseID]; stored.Stage != domain.StageProcessingInsurer {
		t.Fatalf("stage = %s, want PROCESSING_INSURER", stored.Stage)
	}
	if got := lastDelivered(t, h.deliver).Content; got != msgAcceptanceSent {
		t.Fatalf("delivered %q, want acceptance-sent message", got)
	}
}

func TestHandleText_OfferPathChangeRoutesBackToInsurer(t *testing.T) {
	c := caseAt(domain.StageOfferDecision)
	offer := int64(450000)
	c.OfferCents = &offer
	h := newHarness(t, c)

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "Regie proprie", "wamid.1"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	stored := *h.store.cases[h.caseID]
	if stored.Stage != domain.StageProcessingInsurer {
		t.Fatalf("stage = %s, want PROCESSING_INSURER", stored.Stage)
	}
	if stored.Resolution != domain.ResolutionOwnRegime {
		t.Fatalf("resolution = %s, want OWN_REGIME", stored.Resolution)
	}
}

func TestHandleMedia_ImageIsStoredAndQueued(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageCollectingDocs))

	err := h.ctrl.HandleMedia(context.Background(), h.caseID, domain.ChannelWhatsApp, []InboundMedia{{
		FileName:    "talon.jpg",
		ContentType: "image/jpeg",
		Size:        1024,
		Reader:      bytes.NewReader([]byte("jpeg")),
	}}, "wamid.m1")
	if err != nil {
		t.Fatalf("HandleMedia: %v", err)
	}

	if h.uploader.uploads != 1 {
		t.Fatalf("uploads = %d, want 1", h.uploader.uploads)
	}
	if len(h.store.documents) != 1 || h.store.documents[0].DocType != domain.DocUnknown {
		t.Fatalf("expected one UNK document, got %+v", h.store.documents)
	}
	if len(h.enqueue.payloads) != 1 || h.enqueue.payloads[0].DocumentID != h.store.documents[0].ID.String() {
		t.Fatalf("expected one extraction job for the document, got %+v", h.enqueue.payloads)
	}
	if got := lastDelivered(t, h.deliver).Content; got != msgDocReceived {
		t.Fatalf("delivered %q, want document-received ack", got)
	}
}

func TestHandleMedia_VideoSetsFlagWithoutExtraction(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageCollectingDocs))

	err := h.ctrl.HandleMedia(context.Background(), h.caseID, domain.ChannelWhatsApp, []InboundMedia{{
		FileName:    "accident.mp4",
		ContentType: "video/mp4",
		Size:        2048,
		Reader:      bytes.NewReader([]byte("mp4")),
	}}, "wamid.m1")
	if err != nil {
		t.Fatalf("HandleMedia: %v", err)
	}

	stored := *h.store.cases[h.caseID]
	if !stored.HasSceneVideo {
		t.Fatal("expected scene video flag to be set")
	}
	if len(h.store.documents) != 1 || h.store.documents[0].DocType != domain.DocSceneVideo {
		t.Fatalf("expected one VIDEO document, got %+v", h.store.documents)
	}
	if len(h.enqueue.payloads) != 0 {
		t.Fatalf("videos must not be queued for extraction, got %d jobs", len(h.enqueue.payloads))
	}
}

func TestHandleMedia_UnsupportedTypeIsRejectedWithoutUpload(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageCollectingDocs))

	err := h.ctrl.HandleMedia(context.Background(), h.caseID, domain.ChannelWhatsApp, []InboundMedia{{
		FileName:    "virus.exe",
		ContentType: "application/octet-stream",
		Size:        10,
		Reader:      bytes.NewReader([]byte("mz")),
	}}, "wamid.m1")
	if err != nil {
		t.Fatalf("HandleMedia: %v", err)
	}

	if h.uploader.uploads != 0 {
		t.Fatalf("rejected media must not be uploaded, got %d uploads", h.uploader.uploads)
	}
	if got := lastDelivered(t, h.deliver).Content; got != msgMediaRejected {
		t.Fatalf("delivered %q, want rejection message", got)
	}
}

func TestHandleMedia_HumanManagedDropsNonWebUploads(t *testing.T) {
	c := caseAt(domain.StageCollectingDocs)
	c.IsHumanManaged = true
	h := newHarness(t, c)

	err := h.ctrl.HandleMedia(context.Background(), h.caseID, domain.ChannelWhatsApp, []InboundMedia{{
		FileName:    "ci.jpg",
		ContentType: "image/jpeg",
		Size:        512,
		Reader:      bytes.NewReader([]byte("jpeg")),
	}}, "wamid.m1")
	if err != nil {
		t.Fatalf("HandleMedia: %v", err)
	}

	if len(h.store.documents) != 0 || len(h.enqueue.payloads) != 0 {
		t.Fatalf("expected no document and no job, got %d docs, %d jobs", len(h.store.documents), len(h.enqueue.payloads))
	}
	if h.uploader.uploads != 0 {
		t.Fatalf("dropped media must never reach the bucket, got %d uploads", h.uploader.uploads)
	}
}

func TestHandleMedia_HumanManagedWebUploadStaysSilentButQueued(t *testing.T) {
	c := caseAt(domain.StageCollectingDocs)
	c.IsHumanManaged = true
	c.LastChannel = domain.ChannelWeb
	h := newHarness(t, c)

	err := h.ctrl.HandleMedia(context.Background(), h.caseID, domain.ChannelWeb, []InboundMedia{{
		FileName:    "extras.pdf",
		ContentType: "application/pdf",
		Size:        512,
		Reader:      bytes.NewReader([]byte("pdf")),
	}}, "")
	if err != nil {
		t.Fatalf("HandleMedia: %v", err)
	}

	if len(h.store.documents) != 1 || len(h.enqueue.payloads) != 1 {
		t.Fatalf("expected document stored and queued, got %d docs, %d jobs", len(h.store.documents), len(h.enqueue.payloads))
	}
	if len(h.deliver.delivered) != 0 {
		t.Fatalf("expected no bot replies while human managed, got %d", len(h.deliver.delivered))
	}
}

func TestHandleMedia_BatchSkipsFailedFileAndAcksSavedCount(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageCollectingDocs))
	h.uploader.failFor = "amiabila.jpg"

	err := h.ctrl.HandleMedia(context.Background(), h.caseID, domain.ChannelWhatsApp, []InboundMedia{
		{FileName: "ci.jpg", ContentType: "image/jpeg", Size: 100, Reader: bytes.NewReader([]byte("a"))},
		{FileName: "amiabila.jpg", ContentType: "image/jpeg", Size: 100, Reader: bytes.NewReader([]byte("b"))},
		{FileName: "talon.pdf", ContentType: "application/pdf", Size: 100, Reader: bytes.NewReader([]byte("c"))},
	}, "wamid.m1")
	if err != nil {
		t.Fatalf("HandleMedia: %v", err)
	}

	if len(h.store.documents) != 2 {
		t.Fatalf("documents = %d, want the two stored files", len(h.store.documents))
	}
	if len(h.enqueue.payloads) != 2 {
		t.Fatalf("extraction jobs = %d, want 2", len(h.enqueue.payloads))
	}
	if got := lastDelivered(t, h.deliver).Content; !strings.Contains(got, "2 documente") {
		t.Fatalf("ack = %q, want the saved count", got)
	}
}

func TestHandleMedia_MixedBatchAcksVideoAndDocuments(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageCollectingDocs))

	err := h.ctrl.HandleMedia(context.Background(), h.caseID, domain.ChannelWhatsApp, []InboundMedia{
		{FileName: "accident.mp4", ContentType: "video/mp4", Size: 100, Reader: bytes.NewReader([]byte("v"))},
		{FileName: "ci.jpg", ContentType: "image/jpeg", Size: 100, Reader: bytes.NewReader([]byte("a"))},
	}, "wamid.m1")
	if err != nil {
		t.Fatalf("HandleMedia: %v", err)
	}

	stored := *h.store.cases[h.caseID]
	if !stored.HasSceneVideo {
		t.Fatal("expected scene video flag to be set")
	}
	if len(h.enqueue.payloads) != 1 {
		t.Fatalf("extraction jobs = %d, want 1 (video is never queued)", len(h.enqueue.payloads))
	}
	if len(h.deliver.delivered) != 2 {
		t.Fatalf("delivered %d messages, want video ack plus document ack", len(h.deliver.delivered))
	}
	if h.deliver.delivered[0].Content != msgVideoReceived {
		t.Fatalf("first ack = %q, want video ack", h.deliver.delivered[0].Content)
	}
	if h.deliver.delivered[1].Content != msgDocReceived {
		t.Fatalf("second ack = %q, want document ack", h.deliver.delivered[1].Content)
	}
}

func TestButtonLabels_ClassifyToTheirIntents(t *testing.T) {
	cls := domain.NewKeywordClassifier()

	greeting := map[string]domain.Intent{
		greetingButtons[0]: domain.IntentAffirm,
		greetingButtons[1]: domain.IntentDecline,
	}
	for label, want := range greeting {
		if got := cls.Greeting(label); got != want {
			t.Fatalf("Greeting(%q) = %s, want %s", label, got, want)
		}
	}

	resolution := map[string]domain.Intent{
		resolutionButtons[0]: domain.IntentServiceRAR,
		resolutionButtons[1]: domain.IntentOwnRegime,
		resolutionButtons[2]: domain.IntentTotalLoss,
	}
	for label, want := range resolution {
		if got := cls.Resolution(label); got != want {
			t.Fatalf("Resolution(%q) = %s, want %s", label, got, want)
		}
	}

	offer := map[string]domain.Intent{
		offerButtons[0]: domain.IntentAcceptOffer,
		offerButtons[1]: domain.IntentOwnRegime,
		offerButtons[2]: domain.IntentServiceRAR,
		offerButtons[3]: domain.IntentTotalLoss,
	}
	for label, want := range offer {
		if got := cls.Offer(label); got != want {
			t.Fatalf("Offer(%q) = %s, want %s", label, got, want)
		}
	}
}

func TestHandleText_OfferTotalLossButtonRoutesBack(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageOfferDecision))

	err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, offerButtons[3], "wamid.1")
	if err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	stored := *h.store.cases[h.caseID]
	if stored.Stage != domain.StageProcessingInsurer {
		t.Fatalf("stage = %s, want PROCESSING_INSURER", stored.Stage)
	}
	if stored.Resolution != domain.ResolutionTotalLoss {
		t.Fatalf("resolution = %s, want TOTAL_LOSS", stored.Resolution)
	}
	if got := lastDelivered(t, h.deliver).Content; got != msgOfferChangedPath {
		t.Fatalf("delivered %q, want changed-path ack", got)
	}
}

func TestReevaluate_SilentWhileExtractionsPending(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageCollectingDocs))
	h.store.pendingExtractions = 1

	if err := h.ctrl.Reevaluate(context.Background(), h.caseID); err != nil {
		t.Fatalf("Reevaluate: %v", err)
	}
	if len(h.deliver.delivered) != 0 {
		t.Fatalf("expected silence while jobs pending, got %d messages", len(h.deliver.delivered))
	}
}

func TestReevaluate_ReportsRemainingDocuments(t *testing.T) {
	c := caseAt(domain.StageCollectingDocs)
	c.HasIDCard = true
	h := newHarness(t, c)

	if err := h.ctrl.Reevaluate(context.Background(), h.caseID); err != nil {
		t.Fatalf("Reevaluate: %v", err)
	}

	msg := lastDelivered(t, h.deliver)
	if strings.Contains(msg.Content, "Buletin") {
		t.Fatalf("satisfied requirement listed as missing: %q", msg.Content)
	}
	if !strings.Contains(msg.Content, "Talon") {
		t.Fatalf("expected remaining documents, got %q", msg.Content)
	}
}

func TestHandleMandateSigned_MovesCaseToInsurerProcessing(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageSigningMandate))

	if err := h.ctrl.HandleMandateSigned(context.Background(), h.caseID); err != nil {
		t.Fatalf("HandleMandateSigned: %v", err)
	}

	stored := *h.store.cases[h.caseID]
	if !stored.HasMandateSigned {
		t.Fatal("expected mandate flag to be set")
	}
	if stored.Stage != domain.StageProcessingInsurer {
		t.Fatalf("stage = %s, want PROCESSING_INSURER", stored.Stage)
	}
}

func TestHandleOfferReceived_PresentsOfferWithButtons(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageProcessingInsurer))

	if err := h.ctrl.HandleOfferReceived(context.Background(), h.caseID, 1234567); err != nil {
		t.Fatalf("HandleOfferReceived: %v", err)
	}

	stored := *h.store.cases[h.caseID]
	if stored.Stage != domain.StageOfferDecision {
		t.Fatalf("stage = %s, want OFFER_DECISION", stored.Stage)
	}
	msg := lastDelivered(t, h.deliver)
	if !strings.Contains(msg.Content, "12.345,67") && !strings.Contains(msg.Content, "12345,67") {
		t.Fatalf("expected formatted offer amount, got %q", msg.Content)
	}
	if len(msg.Buttons) != 4 {
		t.Fatalf("expected 4 offer buttons, got %d", len(msg.Buttons))
	}
}

func TestHandleOfferReceived_IgnoredOutsideInsurerProcessing(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageCollectingDocs))

	if err := h.ctrl.HandleOfferReceived(context.Background(), h.caseID, 100000); err != nil {
		t.Fatalf("HandleOfferReceived: %v", err)
	}
	if stored := *h.store.cases[h.caseID]; stored.Stage != domain.StageCollectingDocs {
		t.Fatalf("stage = %s, want COLLECTING_DOCS", stored.Stage)
	}
	if len(h.deliver.delivered) != 0 {
		t.Fatalf("expected no messages, got %d", len(h.deliver.delivered))
	}
}

func TestConverse_DeliveryFailureDoesNotFailTheTurn(t *testing.T) {
	h := newHarness(t, caseAt(domain.StageGreeting))
	h.deliver.fail = true

	if err := h.ctrl.HandleText(context.Background(), h.caseID, domain.ChannelWhatsApp, "buna", "wamid.1"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if len(h.store.outbound()) == 0 {
		t.Fatal("reply must still be persisted in the communication log")
	}
}
