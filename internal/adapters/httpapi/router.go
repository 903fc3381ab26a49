package httpapi

import (
	"context"

	"crosspost/internal/adapters/httpapi/middleware"
	postPort "crosspost/internal/ports/post"
	profilePort "crosspost/internal/ports/profile"
	spPort "crosspost/internal/ports/scheduledpost"
	userPort "crosspost/internal/ports/user"

	"github.com/gin-gonic/gin"
)

// UserUseCase: اینترفیسِ لازم برای کنترلر/روتر (Inbound Port)
type UserUseCase interface {
	RegisterUser(ctx context.Context, name, family, username string) (*userPort.UserDTO, error)
}

type ScheduledPostUseCase interface {
	Create(ctx context.Context, ownerID string, in spPort.CreateInput) (*spPort.ScheduledPostDTO, error)
	Update(ctx context.Context, id, ownerID string, in spPort.UpdateInput) (*spPort.ScheduledPostDTO, error)
	Cancel(ctx context.Context, id, ownerID string) error
	TriggerNow(ctx context.Context, id, ownerID string) (*spPort.ScheduledPostDTO, error)
	Get(ctx context.Context, id, ownerID string) (*spPort.ScheduledPostDTO, error)
	List(ctx context.Context, ownerID, status string) ([]*spPort.ScheduledPostDTO, error)
}

type ProfileUseCase interface {
	Connect(ctx context.Context, userID string, in profilePort.ConnectInput) (*profilePort.ProfileDTO, error)
	List(ctx context.Context, userID string) ([]*profilePort.ProfileDTO, error)
	Disconnect(ctx context.Context, userID, platform string) error
}

type PostUseCase interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]*postPort.PostDTO, error)
	PublishNow(ctx context.Context, userID string, in postPort.PublishInput) (*postPort.PostDTO, error)
}

// فقط روتینگ: UseCase از بیرون تزریق می‌شود
func SetupRoutes(
	userUC UserUseCase,
	scheduledUC ScheduledPostUseCase,
	profileUC ProfileUseCase,
	postUC PostUseCase,
	jwtSecret []byte,
) *gin.Engine {
	r := gin.Default()
	uc := NewUserController(userUC)
	sc := NewScheduledPostController(scheduledUC)
	prc := NewProfileController(profileUC)
	pc := NewPostController(postUC)

	// ثبت‌نام بدون JWT Middleware
	r.POST("/register", uc.RegisterUser)

	auth := r.Group("/", middleware.JWTAuthMiddleware(jwtSecret))

	// پست‌های زمان‌بندی‌شده
	auth.POST("/scheduled-posts", sc.Create)
	auth.GET("/scheduled-posts", sc.List)
	auth.GET("/scheduled-posts/:id", sc.Get)
	auth.PUT("/scheduled-posts/:id", sc.Update)
	auth.DELETE("/scheduled-posts/:id", sc.Cancel)
	auth.POST("/scheduled-posts/:id/trigger", sc.TriggerNow)

	// اتصال به پلتفرم‌ها
	auth.GET("/profiles", prc.List)
	auth.POST("/profiles", prc.Connect)
	auth.DELETE("/profiles/:platform", prc.Disconnect)

	auth.GET("/posts/recent", pc.ListRecent)
	auth.POST("/posts/immediate", pc.PublishNow)
	return r
}
