package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shenwii/line-chatgpt-bot/internal/catalog"
	"github.com/shenwii/line-chatgpt-bot/internal/chat"
	"github.com/shenwii/line-chatgpt-bot/internal/line"
	"github.com/shenwii/line-chatgpt-bot/internal/session"
)

type fakeMessenger struct {
	replies      []messaging_api.MessageInterface
	texts        []string
	profileErr   error
	profileCalls int
}

func (m *fakeMessenger) Reply(_ string, messages ...messaging_api.MessageInterface) error {
	m.replies = append(m.replies, messages...)
	return nil
}

func (m *fakeMessenger) ReplyText(_ string, texts ...string) error {
	m.texts = append(m.texts, texts...)
	return nil
}

func (m *fakeMessenger) GetProfile(userID string) (line.Profile, error) {
	m.profileCalls++
	if m.profileErr != nil {
		return line.Profile{}, m.profileErr
	}
	return line.Profile{DisplayName: "Alice", UserID: userID}, nil
}

type fakeStore struct {
	sess         session.Session
	fetchErr     error
	setModel     []string
	setAssistant []string
	setHistory   [][]session.Turn
}

func (s *fakeStore) FetchOrCreate(_ context.Context, userID, defaultAssistant, defaultModel string) (session.Session, error) {
	if s.fetchErr != nil {
		return session.Session{}, s.fetchErr
	}
	if s.sess.UserID == "" {
		return session.Session{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			Assistant: defaultAssistant,
			Model:     defaultModel,
			History:   []session.Turn{},
		}, nil
	}
	return s.sess, nil
}

func (s *fakeStore) SetModel(_ context.Context, _ primitive.ObjectID, model string) error {
	s.setModel = append(s.setModel, model)
	return nil
}

func (s *fakeStore) SetAssistant(_ context.Context, _ primitive.ObjectID, assistant string) error {
	s.setAssistant = append(s.setAssistant, assistant)
	return nil
}

func (s *fakeStore) SetHistory(_ context.Context, _ primitive.ObjectID, history []session.Turn) error {
	s.setHistory = append(s.setHistory, history)
	return nil
}

type fakeEngine struct {
	textDecision  chat.Decision
	imageDecision chat.Decision
	err           error
	textIn        []string
	imageIn       []string
}

func (e *fakeEngine) TextTurn(_ context.Context, _ session.Session, text string) (chat.Decision, error) {
	e.textIn = append(e.textIn, text)
	return e.textDecision, e.err
}

func (e *fakeEngine) ImageTurn(_ context.Context, _ session.Session, messageID string) (chat.Decision, error) {
	e.imageIn = append(e.imageIn, messageID)
	return e.imageDecision, e.err
}

var routerModelsYAML = []byte(`
default:
  model: gpt-4o
  type: chat
  vision: true
`)

var routerAssistantsYAML = []byte(`
general:
  instructions: Be helpful.
  description: General
`)

func routerCatalog(t *testing.T) catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse(routerModelsYAML, routerAssistantsYAML)
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return cat
}

func newTestRouter(t *testing.T, messenger *fakeMessenger, store *fakeStore, engine *fakeEngine, allow, deny []string) *Router {
	t.Helper()
	return NewRouter(nil, messenger, store, engine, routerCatalog(t), allow, deny)
}

func textEvent(userID, text string) webhook.EventInterface {
	return webhook.MessageEvent{
		ReplyToken: "rt",
		Source:     webhook.UserSource{UserId: userID},
		Message:    webhook.TextMessageContent{Text: text},
	}
}

func imageEvent(userID, messageID string) webhook.EventInterface {
	return webhook.MessageEvent{
		ReplyToken: "rt",
		Source:     webhook.UserSource{UserId: userID},
		Message:    webhook.ImageMessageContent{Id: messageID},
	}
}

func postbackEvent(userID, data string) webhook.EventInterface {
	return webhook.PostbackEvent{
		ReplyToken: "rt",
		Source:     webhook.UserSource{UserId: userID},
		Postback:   &webhook.PostbackContent{Data: data},
	}
}

func handle(t *testing.T, r *Router, ev webhook.EventInterface) {
	t.Helper()
	if err := r.HandleEvents(context.Background(), []webhook.EventInterface{ev}); err != nil {
		t.Fatalf("HandleEvents: %v", err)
	}
}

func TestUnknownCommandReplies(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	engine := &fakeEngine{}
	r := newTestRouter(t, messenger, &fakeStore{}, engine, nil, nil)

	handle(t, r, textEvent("U1", "/foobar"))

	if len(messenger.texts) != 1 || messenger.texts[0] != unknownCommandReply {
		t.Fatalf("texts = %v", messenger.texts)
	}
	if len(engine.textIn) != 0 {
		t.Error("unknown command must not reach the conversation engine")
	}
}

func TestPlainTextFlowsToEngine(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	store := &fakeStore{}
	engine := &fakeEngine{textDecision: chat.Decision{
		Reply:   "hi there",
		History: []session.Turn{{Role: session.RoleUser, Text: "hello"}, {Role: session.RoleAssistant, Text: "hi there"}},
	}}
	r := newTestRouter(t, messenger, store, engine, nil, nil)

	handle(t, r, textEvent("U1", "hello"))

	if len(engine.textIn) != 1 || engine.textIn[0] != "hello" {
		t.Fatalf("engine input = %v", engine.textIn)
	}
	if len(messenger.texts) != 1 || messenger.texts[0] != "hi there" {
		t.Fatalf("texts = %v", messenger.texts)
	}
	if len(store.setHistory) != 1 || len(store.setHistory[0]) != 2 {
		t.Fatalf("persisted history = %v", store.setHistory)
	}
}

func TestTextWithInnerSlashIsNotACommand(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	engine := &fakeEngine{textDecision: chat.Decision{Reply: "ok"}}
	r := newTestRouter(t, messenger, &fakeStore{}, engine, nil, nil)

	handle(t, r, textEvent("U1", "what does a/b mean"))

	if len(engine.textIn) != 1 {
		t.Fatal("message with an inner slash must flow to the engine")
	}
}

func TestMeCommandIgnoresRemainder(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	r := newTestRouter(t, messenger, &fakeStore{}, &fakeEngine{}, nil, nil)

	handle(t, r, textEvent("U1", "/me extra args"))

	if len(messenger.texts) != 1 {
		t.Fatalf("texts = %v", messenger.texts)
	}
	if !strings.Contains(messenger.texts[0], "Alice") || !strings.Contains(messenger.texts[0], "U1") {
		t.Errorf("profile reply = %q", messenger.texts[0])
	}
}

func TestNewCommandClearsHistory(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	store := &fakeStore{}
	r := newTestRouter(t, messenger, store, &fakeEngine{}, nil, nil)

	// Idempotent: clearing twice is two successful no-op-equivalent writes.
	handle(t, r, textEvent("U1", "/new"))
	handle(t, r, textEvent("U1", "/new"))

	if len(store.setHistory) != 2 {
		t.Fatalf("history writes = %d, want 2", len(store.setHistory))
	}
	for _, h := range store.setHistory {
		if h != nil {
			t.Errorf("clear wrote %v, want nil", h)
		}
	}
	if len(messenger.texts) != 2 || messenger.texts[0] != sessionClearedReply {
		t.Fatalf("texts = %v", messenger.texts)
	}
}

func TestModelCommandRepliesCarousel(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	r := newTestRouter(t, messenger, &fakeStore{}, &fakeEngine{}, nil, nil)

	handle(t, r, textEvent("U1", "/model"))

	if len(messenger.replies) != 1 {
		t.Fatalf("replies = %d, want 1 carousel", len(messenger.replies))
	}
	if _, ok := messenger.replies[0].(messaging_api.TemplateMessage); !ok {
		t.Fatalf("reply type = %T, want TemplateMessage", messenger.replies[0])
	}
}

func TestPostbackSelectModelStoresKeyUnvalidated(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	store := &fakeStore{}
	r := newTestRouter(t, messenger, store, &fakeEngine{}, nil, nil)

	// The key is not in the catalog; selection stores it anyway.
	handle(t, r, postbackEvent("U1", "action=select_model&model=ghost-model"))

	if len(store.setModel) != 1 || store.setModel[0] != "ghost-model" {
		t.Fatalf("stored models = %v", store.setModel)
	}
	if len(messenger.texts) != 1 || messenger.texts[0] != "Model ghost-model selected." {
		t.Fatalf("texts = %v", messenger.texts)
	}
}

func TestPostbackSelectAssistant(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	store := &fakeStore{}
	r := newTestRouter(t, messenger, store, &fakeEngine{}, nil, nil)

	handle(t, r, postbackEvent("U1", "action=select_assistant&assistant=general"))

	if len(store.setAssistant) != 1 || store.setAssistant[0] != "general" {
		t.Fatalf("stored assistants = %v", store.setAssistant)
	}
}

func TestPostbackUnknownAction(t *testing.T) {
	t.Parallel()

	for _, data := range []string{"action=explode", "action=select_model", ""} {
		messenger := &fakeMessenger{}
		store := &fakeStore{}
		r := newTestRouter(t, messenger, store, &fakeEngine{}, nil, nil)

		handle(t, r, postbackEvent("U1", data))

		if len(messenger.texts) != 1 || messenger.texts[0] != unknownActionReply {
			t.Errorf("data %q: texts = %v", data, messenger.texts)
		}
		if len(store.setModel)+len(store.setAssistant) != 0 {
			t.Errorf("data %q: unexpected session write", data)
		}
	}
}

func TestGuardFailureBecomesReply(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	store := &fakeStore{}
	engine := &fakeEngine{err: &chat.UnknownModelError{Key: "ghost"}}
	r := newTestRouter(t, messenger, store, engine, nil, nil)

	handle(t, r, textEvent("U1", "hello"))

	if len(messenger.texts) != 1 || messenger.texts[0] != "model does not exist: ghost" {
		t.Fatalf("texts = %v", messenger.texts)
	}
	if len(store.setHistory) != 0 {
		t.Error("guard failure must not persist history")
	}
}

func TestEngineErrorPropagates(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{err: errors.New("upstream down")}
	r := newTestRouter(t, &fakeMessenger{}, &fakeStore{}, engine, nil, nil)

	err := r.HandleEvents(context.Background(), []webhook.EventInterface{textEvent("U1", "hello")})
	if err == nil {
		t.Fatal("non-guard engine error must propagate to the boundary")
	}
}

func TestImageEventFlowsToEngine(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	store := &fakeStore{}
	engine := &fakeEngine{imageDecision: chat.Decision{
		Reply:   chat.ImagePromptReply,
		History: []session.Turn{{Role: session.RoleUser, Parts: []session.ContentPart{{Type: session.PartImage, ImageURL: "data:image/jpeg;base64,x"}}}},
	}}
	r := newTestRouter(t, messenger, store, engine, nil, nil)

	handle(t, r, imageEvent("U1", "msg-9"))

	if len(engine.imageIn) != 1 || engine.imageIn[0] != "msg-9" {
		t.Fatalf("engine input = %v", engine.imageIn)
	}
	if len(messenger.texts) != 1 || messenger.texts[0] != chat.ImagePromptReply {
		t.Fatalf("texts = %v", messenger.texts)
	}
	if len(store.setHistory) != 1 {
		t.Fatal("pending image turn must be persisted")
	}
}

func TestAccessLists(t *testing.T) {
	t.Parallel()

	t.Run("deny wins over allow", func(t *testing.T) {
		t.Parallel()
		messenger := &fakeMessenger{}
		engine := &fakeEngine{}
		r := newTestRouter(t, messenger, &fakeStore{}, engine, []string{"U1"}, []string{"U1"})

		handle(t, r, textEvent("U1", "hello"))

		if messenger.profileCalls != 0 || len(engine.textIn) != 0 {
			t.Error("denied user must be dropped before any processing")
		}
	})

	t.Run("allow list restricts when non-empty", func(t *testing.T) {
		t.Parallel()
		messenger := &fakeMessenger{}
		engine := &fakeEngine{textDecision: chat.Decision{Reply: "ok"}}
		r := newTestRouter(t, messenger, &fakeStore{}, engine, []string{"U1"}, nil)

		handle(t, r, textEvent("U2", "hello"))
		handle(t, r, textEvent("U1", "hello"))

		if len(engine.textIn) != 1 {
			t.Fatalf("engine calls = %d, want only the allowed user", len(engine.textIn))
		}
	})

	t.Run("empty lists admit everyone", func(t *testing.T) {
		t.Parallel()
		messenger := &fakeMessenger{}
		engine := &fakeEngine{textDecision: chat.Decision{Reply: "ok"}}
		r := newTestRouter(t, messenger, &fakeStore{}, engine, nil, nil)

		handle(t, r, textEvent("U3", "hello"))

		if len(engine.textIn) != 1 {
			t.Error("user must be admitted with no access lists configured")
		}
	})
}

func TestEventWithoutUserIsDropped(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	engine := &fakeEngine{}
	r := newTestRouter(t, messenger, &fakeStore{}, engine, nil, nil)

	handle(t, r, webhook.MessageEvent{
		ReplyToken: "rt",
		Message:    webhook.TextMessageContent{Text: "hello"},
	})

	if len(engine.textIn) != 0 || len(messenger.texts) != 0 {
		t.Error("event without a resolvable user must be ignored")
	}
}
