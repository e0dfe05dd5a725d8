package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	stdimage "image"
	"image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/payflow/internal"
	userDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/user"
	"github.com/frahmantamala/payflow/internal/core/testutil"
	"github.com/frahmantamala/payflow/internal/storage"
	"github.com/frahmantamala/payflow/internal/transport"
	"github.com/frahmantamala/payflow/internal/user"
)

func multipartBody(fields map[string]string, fileField, fileName string, data []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		Expect(mw.WriteField(k, v)).To(Succeed())
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		Expect(err).NotTo(HaveOccurred())
		_, err = fw.Write(data)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(mw.Close()).To(Succeed())
	return &buf, mw.FormDataContentType()
}

func tinyPNG() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, 2, 2)))).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("User Handler", func() {
	var (
		router    http.Handler
		files     *testutil.MemoryFileStore
		mockRepo  *MockRepository
		principal *internal.User
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		mockRepo = NewMockRepository()
		files = testutil.NewMemoryFileStore()
		service := user.NewService(mockRepo, staticAuthorizer(true), files, bcrypt.MinCost, logger)
		handler := user.NewHandler(transport.NewBaseHandler(logger), service, storage.NewImageValidator(2048), files)
		principal = nil

		r := chi.NewRouter()
		r.Post("/auth/register", handler.Register)
		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					if principal != nil {
						req = req.WithContext(internal.ContextWithUser(req.Context(), principal))
					}
					next.ServeHTTP(w, req)
				})
			})
			r.Get("/users/me", handler.GetMe)
			r.Put("/users/me/biodata", handler.UpdateBiodata)
			r.Post("/users/bulk-delete", handler.BulkDeleteUsers)
		})
		router = r
	})

	registerFields := map[string]string{
		"name":                  "Budi",
		"email":                 "budi@example.com",
		"password":              "rahasia1",
		"password_confirmation": "rahasia1",
		"phone":                 "08123456",
	}

	It("should register with a multipart photo and expose its url", func() {
		// Given
		body, contentType := multipartBody(registerFields, "photo", "me.png", tinyPNG())
		req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		// When
		router.ServeHTTP(rec, req)

		// Then
		Expect(rec.Code).To(Equal(http.StatusCreated))
		var resp user.UserResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Photo).To(HavePrefix(storage.DirUserPhotos))
		Expect(resp.PhotoURL).To(Equal("/storage/" + resp.Photo))
		Expect(rec.Body.String()).NotTo(ContainSubstring("password"))
	})

	It("should reject a photo that is not an image", func() {
		body, contentType := multipartBody(registerFields, "photo", "me.png", []byte("%PDF-1.4 not an image"))
		req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring(string(internal.ErrCodeUnsupportedFileType)))
		Expect(files.Count()).To(BeZero())
	})

	It("should register from a json body", func() {
		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"name":"Siti","email":"siti@example.com","password":"abcd1","password_confirmation":"abcd1","phone":"+62811111"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusCreated))
	})

	It("should answer 401 for /users/me without a principal", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should update biodata and return the profile", func() {
		// Given
		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"name":"Siti","email":"siti@example.com","password":"abcd1","password_confirmation":"abcd1","phone":"+62811111"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusCreated))
		principal = &internal.User{ID: 1, Email: "siti@example.com"}

		// When
		req = httptest.NewRequest(http.MethodPut, "/users/me/biodata",
			strings.NewReader(`{"name":"Siti Aminah","email":"siti@example.com","phone":"+62811111"}`))
		req.Header.Set("Content-Type", "application/json")
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		// Then
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Siti Aminah"))
	})

	It("should bulk delete users", func() {
		seeded := &userDatamodel.User{Name: "A", Email: "a@example.com", Phone: "0811111111"}
		Expect(mockRepo.Create(context.Background(), seeded, nil)).To(Succeed())
		principal = &internal.User{ID: 50, Permissions: []string{"admin"}}

		req := httptest.NewRequest(http.MethodPost, "/users/bulk-delete", strings.NewReader(`{"ids":[1]}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"deleted":1`))
	})
})
