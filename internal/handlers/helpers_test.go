package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/viprasethu/backend/internal/config"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/internal/storage"
	"github.com/viprasethu/backend/internal/testutil"
	"github.com/viprasethu/backend/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("handler-test-secret")
}

const testAdminEmail = "admin@viprasethu.test"

// env holds the shared collaborators handler tests build routers from.
type env struct {
	db      *gorm.DB
	store   *storage.MemoryStore
	photos  *services.PhotoService
	logs    *services.SystemLogService
	metrics *services.Metrics
	admins  *services.AdminDirectory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	store := storage.NewMemoryStore("https://storage.test/provider-photos")
	metrics := services.NewMetrics()
	photos := services.NewPhotoService(store, config.UploadConfig{}, 0, metrics)

	queue := services.NewSyncQueue()
	queue.SetProcessor(photos.DeleteObjects)
	photos.SetQueue(queue)
	t.Cleanup(func() { queue.Close() })

	admins := services.NewAdminDirectory(db)
	require.NoError(t, db.Create(&models.AdminEmail{Email: testAdminEmail}).Error)

	return &env{
		db:      db,
		store:   store,
		photos:  photos,
		logs:    services.NewSystemLogService(db),
		metrics: metrics,
		admins:  admins,
	}
}

func bearer(t *testing.T, id uint, email, role string) string {
	t.Helper()
	token, err := utils.GenerateToken(id, email, role, utils.AAL2, 1)
	require.NoError(t, err)
	return "Bearer " + token
}

func adminAuth(t *testing.T) string {
	return bearer(t, 1, testAdminEmail, models.RoleUser)
}

// do sends body as JSON unless it is already a reader.
func do(r http.Handler, method, target string, body interface{}, authorization string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	OK     bool            `json:"ok"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	ID     string          `json:"id"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	out := decode(t, w)
	require.True(t, out.OK, w.Body.String())
	require.NoError(t, json.Unmarshal(out.Data, dest))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 3), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func seedProvider(t *testing.T, db *gorm.DB, name string, status models.ProviderStatus) *models.Provider {
	t.Helper()
	p := &models.Provider{
		ID:           uuid.NewString(),
		Name:         name,
		Phone:        "080 2222 3333",
		CategoryCode: "purohit",
		Languages:    datatypes.JSONSlice[string]{"kannada"},
		Status:       status,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
