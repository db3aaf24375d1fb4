package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/medconnect/clinic-backend/internal/adapters/database"
	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/postgres"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	"github.com/medconnect/clinic-backend/internal/infrastructure/security"
	"github.com/medconnect/clinic-backend/pkg/config"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

const seedPassword = "password123"

var seedFields = []string{"General Medicine", "Pediatrics", "Cardiology", "Dermatology", "Obstetrics and Gynecology"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("clinic-seed", cfg.Environment)
	logger := observability.GetLogger()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	ctx := context.Background()

	if path := os.Getenv("MIGRATIONS_FILE"); path != "" {
		schema, err := os.ReadFile(path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("Failed to read migrations")
		}
		if _, err := pgClient.DB().ExecContext(ctx, string(schema)); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		logger.Info().Str("path", path).Msg("Schema applied")
	}

	if os.Getenv("RESET_DB") == "true" {
		logger.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				event_interests,
				events,
				likes,
				comments,
				articles,
				messages,
				notifications,
				appointments,
				slots,
				otp_codes,
				clients,
				doctors,
				admins,
				fields,
				users
			CASCADE
		`)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	// 1. Specialty fields
	db := goqu.New("postgres", pgClient.DB())
	fieldIDs := make(map[string]string, len(seedFields))
	for _, name := range seedFields {
		id := uuid.New().String()
		query, args, err := db.Insert("fields").
			Rows(goqu.Record{"id": id, "name": name}).
			OnConflict(goqu.DoNothing()).
			Prepared(true).
			ToSQL()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to build field insert")
		}
		if _, err := pgClient.DB().ExecContext(ctx, query, args...); err != nil {
			logger.Fatal().Err(err).Str("field", name).Msg("Failed to seed field")
		}
	}
	rows := []struct {
		ID   string `db:"id"`
		Name string `db:"name"`
	}{}
	if err := db.From("fields").Select("id", "name").ScanStructsContext(ctx, &rows); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load fields")
	}
	for _, row := range rows {
		fieldIDs[row.Name] = row.ID
	}

	// Services run without Redis; broadcasts are stored but not pushed
	userAdapter := database.NewUserAdapter(pgClient)
	profileAdapter := database.NewProfileAdapter(pgClient)
	notificationAdapter := database.NewNotificationAdapter(sqlx.NewDb(pgClient.DB(), "postgres"))
	dispatcher := services.NewNotificationDispatcher(userAdapter, notificationAdapter, nil, cfg.Notifications, nil)
	dispatcher.Start(ctx)
	notifier := services.NewNotificationService(notificationAdapter, nil, dispatcher, nil)

	authService := services.NewAuthService(
		userAdapter,
		profileAdapter,
		database.NewOTPAdapter(pgClient),
		security.NewPasswordHasher(cfg.Auth.BcryptCost),
		security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		cfg.Auth.AdminSecret,
		cfg.Auth.OTPTTL,
	)
	profileService := services.NewProfileService(userAdapter, profileAdapter, notifier)
	availabilityService := services.NewAvailabilityService(database.NewAvailabilityAdapter(pgClient), profileAdapter, cfg.Clinic.Location())
	articleService := services.NewArticleService(database.NewArticleAdapter(pgClient), notifier)
	eventService := services.NewEventService(database.NewEventAdapter(pgClient), notifier, cfg.Clinic.Location())

	// 2. Accounts
	register := func(role entities.Role, email, first, last string, fieldID *string) *entities.User {
		user, err := authService.Register(ctx, role, services.RegisterInput{
			Email:     email,
			Password:  seedPassword,
			SecretKey: cfg.Auth.AdminSecret,
			Profile: entities.ProfileFields{
				PersonName:    entities.PersonName{FirstName: first, LastName: last},
				ContactNumber: "09170000000",
				FieldID:       fieldID,
			},
		})
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			logger.Info().Str("email", email).Msg("Account already exists, skipping")
			return nil
		}
		if err != nil {
			logger.Fatal().Err(err).Str("email", email).Msg("Failed to register account")
		}
		logger.Info().Str("email", email).Str("role", string(role)).Msg("Registered account")
		return user
	}

	admin := register(entities.RoleAdmin, "admin@clinic.local", "Ana", "Reyes", nil)
	if admin == nil {
		logger.Info().Msg("Seed data already present")
		shutdown(dispatcher)
		return
	}
	adminActor := services.Actor{UserID: admin.ID, Role: entities.RoleAdmin}

	generalID := fieldIDs["General Medicine"]
	pediatricsID := fieldIDs["Pediatrics"]
	doctors := []*entities.User{
		register(entities.RoleDoctor, "dr.santos@clinic.local", "Maria", "Santos", &generalID),
		register(entities.RoleDoctor, "dr.cruz@clinic.local", "Jose", "Cruz", &pediatricsID),
	}
	clients := []*entities.User{
		register(entities.RoleClient, "juan@example.com", "Juan", "Dela Cruz", nil),
		register(entities.RoleClient, "liza@example.com", "Liza", "Garcia", nil),
	}

	for _, user := range append(doctors, clients...) {
		if user == nil {
			continue
		}
		if err := profileService.SetUserStatus(ctx, adminActor, user.ID, entities.UserStatusEnabled); err != nil {
			logger.Fatal().Err(err).Str("user_id", user.ID).Msg("Failed to enable account")
		}
	}

	// 3. Availability for the next week
	loc := cfg.Clinic.Location()
	tomorrow := time.Now().In(loc).AddDate(0, 0, 1)
	for _, doctor := range doctors {
		if doctor == nil {
			continue
		}
		actor := services.Actor{UserID: doctor.ID, Role: entities.RoleDoctor}
		for day := 0; day < 5; day++ {
			date := tomorrow.AddDate(0, 0, day).Format("2006-01-02")
			for _, window := range [][2]string{{"09:00", "10:00"}, {"10:00", "11:00"}, {"14:00", "15:00"}} {
				if _, err := availabilityService.DeclareSlot(ctx, actor, services.DeclareSlotInput{
					Date:      date,
					StartTime: window[0],
					EndTime:   window[1],
				}); err != nil {
					logger.Warn().Err(err).Str("date", date).Str("start", window[0]).Msg("Failed to declare slot")
				}
			}
		}
	}

	// 4. Content
	if doctors[0] != nil {
		doctorActor := services.Actor{UserID: doctors[0].ID, Role: entities.RoleDoctor}
		if _, err := articleService.Create(ctx, doctorActor, services.CreateArticleInput{
			Title:   "Staying Healthy During Flu Season",
			Content: "Wash your hands often, keep your vaccinations current and rest when you feel unwell.",
			Status:  entities.ArticleStatusPublished,
		}); err != nil {
			logger.Warn().Err(err).Msg("Failed to create article")
		}
	}

	eventDate := tomorrow.AddDate(0, 0, 7).Format("2006-01-02")
	if _, err := eventService.Create(ctx, adminActor, services.CreateEventInput{
		Title:       "Free Blood Pressure Screening",
		Description: "Walk-in screening for all registered clients.",
		Location:    "Clinic Lobby",
		Date:        eventDate,
		Time:        "09:00",
		Status:      entities.EventStatusUpcoming,
	}); err != nil {
		logger.Warn().Err(err).Msg("Failed to create event")
	}

	shutdown(dispatcher)
	logger.Info().Str("password", seedPassword).Msg("Seeding completed")
}

func shutdown(dispatcher *services.NotificationDispatcher) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dispatcher.Shutdown(ctx); err != nil {
		observability.GetLogger().Warn().Err(err).Msg("Notification dispatcher did not drain")
	}
}
