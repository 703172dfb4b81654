package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"telecom-bundle-chat/internal/completion"
	"telecom-bundle-chat/internal/config"
	"telecom-bundle-chat/internal/database"
	"telecom-bundle-chat/internal/events"
	"telecom-bundle-chat/internal/features"
	"telecom-bundle-chat/internal/intent"
	"telecom-bundle-chat/internal/models"
	"telecom-bundle-chat/internal/reply"
)

// ErrUserNotFound is returned when the request phone does not resolve to a user.
var ErrUserNotFound = errors.New("user not found")

// Upstream sources.
const (
	SourceDatabase   = "database"
	SourceCompletion = "completion"
)

// UpstreamError reports a failed dependency call.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Source == SourceCompletion {
		return "generation error: " + e.Err.Error()
	}
	return e.Source + " error: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Store is the subscriber side of the catalog store.
type Store interface {
	GetUser(ctx context.Context, phone string) (*models.User, error)
	GetAirtimeBalance(ctx context.Context, phone string) (decimal.Decimal, error)
	ListPurchasedBundles(ctx context.Context, phone string) ([]models.PurchasedBundle, error)
}

// Catalog answers category and offer queries.
type Catalog interface {
	ListMainCategories(ctx context.Context) ([]string, error)
	ListSubcategories(ctx context.Context, main string) ([]string, error)
	FindOffers(ctx context.Context, filter models.OfferFilter) ([]models.Offer, error)
}

// Options configures optional collaborators of a Service.
type Options struct {
	Mode        string
	Completer   completion.Client
	Events      *events.Manager
	Flags       *features.Manager
	Logger      *slog.Logger
	AdminPhones map[string]bool
	Router      *intent.Router
}

// Service provides the chat logic.
type Service struct {
	store     Store
	catalog   Catalog
	mode      string
	completer completion.Client
	events    *events.Manager
	flags     *features.Manager
	logger    *slog.Logger
	admins    map[string]bool
	router    *intent.Router
	tracer    trace.Tracer
}

// NewService creates a new service instance. The mode defaults to router.
func NewService(store Store, catalog Catalog, opts Options) *Service {
	if opts.Mode == "" {
		opts.Mode = config.ModeRouter
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Router == nil {
		opts.Router = intent.NewRouter()
	}
	if opts.AdminPhones == nil {
		opts.AdminPhones = map[string]bool{}
	}
	return &Service{
		store:     store,
		catalog:   catalog,
		mode:      opts.Mode,
		completer: opts.Completer,
		events:    opts.Events,
		flags:     opts.Flags,
		logger:    opts.Logger,
		admins:    opts.AdminPhones,
		router:    opts.Router,
		tracer:    otel.Tracer("telecom-bundle-chat/service"),
	}
}

// RequiresPhone reports whether chat requests must carry a phone number.
func (s *Service) RequiresPhone() bool {
	return s.mode != config.ModeCompletion
}

// Chat answers one message. Errors are ErrUserNotFound or *UpstreamError.
func (s *Service) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	start := time.Now()
	admin := s.admins[req.Phone]

	ctx, span := s.tracer.Start(ctx, "chat",
		trace.WithAttributes(
			attribute.String("chat.mode", s.mode),
			attribute.Bool("chat.admin", admin),
		),
	)
	defer span.End()

	var (
		resp *models.ChatResponse
		kind string
		err  error
	)
	if s.mode == config.ModeCompletion {
		kind = "completion"
		resp, err = s.completeForRequest(ctx, req)
	} else {
		resp, kind, err = s.route(ctx, req)
	}
	span.SetAttributes(attribute.String("chat.intent", kind))

	logger := s.logger.With(
		"request_id", chimw.GetReqID(ctx),
		"phone", req.Phone,
		"admin", admin,
		"mode", s.mode,
		"intent", kind,
		"duration", time.Since(start),
	)

	event := events.Event{Phone: req.Phone, Mode: s.mode, Intent: kind, Admin: admin}
	switch {
	case err == nil:
		logger.InfoContext(ctx, "chat replied")
		event.Type = events.EventChatReplied
	case errors.Is(err, ErrUserNotFound):
		logger.InfoContext(ctx, "chat user not found")
		event.Type = events.EventUserNotFound
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "chat failed", "error", err)
		event.Type = events.EventChatFailed
		event.Error = err.Error()
	}
	if s.flags.IsEnabled(features.EventHooks) {
		s.events.Publish(ctx, event)
	}

	return resp, err
}

// route resolves the user and dispatches on the classified intent.
func (s *Service) route(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, string, error) {
	user, err := s.resolveUser(ctx, req.Phone)
	if err != nil {
		return nil, "", err
	}

	msg := intent.Normalize(req.Message)
	in := s.router.Classify(msg)
	kind := in.Kind.String()

	switch in.Kind {
	case intent.KindName:
		return &models.ChatResponse{Reply: reply.Name(*user)}, kind, nil

	case intent.KindProfile:
		return &models.ChatResponse{Reply: reply.Profile(*user), User: user}, kind, nil

	case intent.KindAirtime:
		balance, err := s.store.GetAirtimeBalance(ctx, user.Phone)
		if err != nil {
			return nil, kind, databaseError("get airtime balance", err)
		}
		return &models.ChatResponse{Reply: reply.Airtime(*user, balance)}, kind, nil

	case intent.KindBundleBalance:
		bundles, err := s.store.ListPurchasedBundles(ctx, user.Phone)
		if err != nil {
			return nil, kind, databaseError("list purchased bundles", err)
		}
		return &models.ChatResponse{Reply: reply.BundleBalances(*user, bundles)}, kind, nil

	case intent.KindPurchase:
		return &models.ChatResponse{Reply: reply.PurchasePending(in.OfferID)}, kind, nil

	case intent.KindBrowse:
		text, err := s.browse(ctx, *user, msg)
		if err != nil {
			return nil, kind, err
		}
		return &models.ChatResponse{Reply: text}, kind, nil
	}

	if s.mode == config.ModeHybrid && s.completer != nil && s.flags.IsEnabled(features.CompletionFallback) {
		balance, err := s.store.GetAirtimeBalance(ctx, user.Phone)
		if err != nil {
			return nil, "completion", databaseError("get airtime balance", err)
		}
		resp, err := s.complete(ctx, completion.ContextFromBalance(user.Name, user.Phone, balance), req.Message)
		return resp, "completion", err
	}
	return &models.ChatResponse{Reply: reply.Greeting(*user)}, kind, nil
}

// browse extracts a main and sub category from msg. A main category alone
// lists its sub categories; anything else searches offers.
func (s *Service) browse(ctx context.Context, user models.User, msg string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "chat.browse")
	defer span.End()

	mains, err := s.catalog.ListMainCategories(ctx)
	if err != nil {
		return "", databaseError("list main categories", err)
	}
	subs, err := s.catalog.ListSubcategories(ctx, "")
	if err != nil {
		return "", databaseError("list sub categories", err)
	}

	main, foundMain := intent.FirstContained(msg, mains)
	sub, foundSub := intent.FirstContained(msg, subs)

	if foundMain && !foundSub {
		under, err := s.catalog.ListSubcategories(ctx, main)
		if err != nil {
			return "", databaseError("list sub categories", err)
		}
		if len(under) > 0 {
			return reply.Subcategories(user, main, under), nil
		}
	}

	filter := models.OfferFilter{MainCategory: main, SubCategory: sub, Period: intent.ParsePeriod(msg)}
	span.SetAttributes(
		attribute.String("catalog.main", filter.MainCategory),
		attribute.String("catalog.sub", filter.SubCategory),
		attribute.String("catalog.period", filter.Period),
	)
	offers, err := s.catalog.FindOffers(ctx, filter)
	if err != nil {
		return "", databaseError("find offers", err)
	}
	return reply.Offers(user, offers), nil
}

// completeForRequest builds the prompt context from the store when a phone
// is given and from the request metadata otherwise.
func (s *Service) completeForRequest(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	uc := completion.ContextFromMetadata(req.Metadata)
	if req.Phone != "" {
		user, err := s.resolveUser(ctx, req.Phone)
		if err != nil {
			return nil, err
		}
		balance, err := s.store.GetAirtimeBalance(ctx, user.Phone)
		if err != nil {
			return nil, databaseError("get airtime balance", err)
		}
		uc = completion.ContextFromBalance(user.Name, user.Phone, balance)
	}
	return s.complete(ctx, uc, req.Message)
}

func (s *Service) complete(ctx context.Context, uc completion.UserContext, message string) (*models.ChatResponse, error) {
	ctx, span := s.tracer.Start(ctx, "chat.completion")
	defer span.End()

	if s.completer == nil {
		return nil, &UpstreamError{Source: SourceCompletion, Err: errors.New("completion service not configured")}
	}
	text, err := s.completer.Complete(ctx, completion.BuildSystemPrompt(uc), message)
	if err != nil {
		return nil, &UpstreamError{Source: SourceCompletion, Err: err}
	}
	return &models.ChatResponse{Reply: text}, nil
}

func (s *Service) resolveUser(ctx context.Context, phone string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, phone)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, databaseError("get user", err)
	}
	return user, nil
}

func databaseError(op string, err error) error {
	return &UpstreamError{Source: SourceDatabase, Err: fmt.Errorf("%s: %w", op, err)}
}
