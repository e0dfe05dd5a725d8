package department_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/core/testutil"
	"github.com/frahmantamala/payflow/internal/department"
	"github.com/frahmantamala/payflow/internal/transport"
)

var _ = Describe("Department Handler", func() {
	var (
		router http.Handler
		admin  *internal.User
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := department.NewService(NewMockRepository(), staticAuthorizer(true), testutil.NewMemoryFileStore(), logger)
		handler := department.NewHandler(transport.NewBaseHandler(logger), service)
		admin = &internal.User{ID: 1, Permissions: []string{"admin"}}

		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(internal.ContextWithUser(req.Context(), admin)))
			})
		})
		r.Get("/departments", handler.ListDepartments)
		r.Post("/departments", handler.CreateDepartment)
		r.Get("/departments/{id}/cost", handler.GetDepartmentCost)
		r.Delete("/departments/{id}", handler.DeleteDepartment)
		router = r
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("should create a department and expose its cost", func() {
		// Given
		rec := do(http.MethodPost, "/departments", `{"name":"Informatics","semester":1,"cost":500000}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		// When
		rec = do(http.MethodGet, "/departments/1/cost", "")

		// Then
		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp department.CostResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Cost).To(Equal(int64(500000)))
	})

	It("should answer 409 for a duplicate semester", func() {
		Expect(do(http.MethodPost, "/departments", `{"name":"A","semester":3,"cost":1}`).Code).To(Equal(http.StatusCreated))

		rec := do(http.MethodPost, "/departments", `{"name":"B","semester":3,"cost":1}`)
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(rec.Body.String()).To(ContainSubstring("CONSTRAINT_VIOLATION"))
		Expect(rec.Body.String()).To(ContainSubstring(`"field":"semester"`))
	})

	It("should answer 400 for malformed json", func() {
		rec := do(http.MethodPost, "/departments", `{"name":`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should answer 404 for an unknown department", func() {
		Expect(do(http.MethodGet, "/departments/77/cost", "").Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodDelete, "/departments/77", "").Code).To(Equal(http.StatusNotFound))
	})

	It("should answer 400 for a non-numeric id", func() {
		Expect(do(http.MethodGet, "/departments/abc/cost", "").Code).To(Equal(http.StatusBadRequest))
	})
})
