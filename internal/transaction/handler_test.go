package transaction_test

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
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/core/testutil"
	"github.com/frahmantamala/payflow/internal/department"
	"github.com/frahmantamala/payflow/internal/storage"
	"github.com/frahmantamala/payflow/internal/transaction"
	"github.com/frahmantamala/payflow/internal/transport"
)

func proofForm(method string, data []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	Expect(mw.WriteField("payment_method", method)).To(Succeed())
	if data != nil {
		fw, err := mw.CreateFormFile("payment_proof", "bukti.png")
		Expect(err).NotTo(HaveOccurred())
		_, err = fw.Write(data)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(mw.Close()).To(Succeed())
	return &buf, mw.FormDataContentType()
}

func proofPNG() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, 3, 3)))).To(Succeed())
	return buf.Bytes()
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = Describe("Transaction Handler", func() {
	var (
		router    http.Handler
		mockRepo  *MockRepository
		files     *testutil.MemoryFileStore
		principal *internal.User
		admin     *internal.User
		student   *internal.User
		service   *transaction.Service
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		mockRepo = NewMockRepository()
		files = testutil.NewMemoryFileStore()
		service = transaction.NewService(mockRepo, transaction.Collaborators{
			Departments: &fakeDepartments{departments: map[int64]*department.Department{
				1: {ID: 1, Name: "Informatics", Semester: 2, Cost: 750000},
			}},
			Users: fakeUsers{
				1: {ID: 1, Name: "Admin"},
				2: {ID: 2, Name: "Budi", Phone: "0812345678"},
			},
			Authorizer: roleAuthorizer{},
			Files:      files,
			Events:     &recordingPublisher{},
			Summary:    &fakeSummary{},
		}, internal.TransactionConfig{CodeMaxAttempts: 5}, 2048, logger)
		handler := transaction.NewHandler(transport.NewBaseHandler(logger), service, storage.NewImageValidator(2048))

		admin = &internal.User{ID: 1, Permissions: []string{"admin"}}
		student = &internal.User{ID: 2, Permissions: []string{"submit_payment"}}
		principal = student

		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if principal != nil {
					req = req.WithContext(internal.ContextWithUser(req.Context(), principal))
				}
				next.ServeHTTP(w, req)
			})
		})
		r.Get("/transactions", handler.ListTransactions)
		r.Post("/transactions", handler.CreateTransaction)
		r.Get("/transactions/summary", handler.GetSummary)
		r.Get("/transactions/{id}", handler.GetTransaction)
		r.Post("/transactions/{id}/approve", handler.ApproveTransaction)
		r.Post("/transactions/{id}/mark-pending", handler.MarkTransactionPending)
		r.Post("/transactions/{id}/mark-failed", handler.MarkTransactionFailed)
		r.Post("/transactions/{id}/payment", handler.SubmitPayment)
		r.Get("/payflow/payment/{transactionId}", handler.PaymentPage)
		r.Post("/payflow/payment/{transactionId}", handler.SubmitPaymentPage)
		router = r
	})

	serve := func(method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
		if body == nil {
			body = &bytes.Buffer{}
		}
		req := httptest.NewRequest(method, path, body)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	seed := func() *transaction.TransactionView {
		view, err := service.Create(context.Background(), student, transaction.CreateTransactionDTO{DepartmentID: 1})
		Expect(err).NotTo(HaveOccurred())
		return view
	}

	It("should create a pending transaction for the caller", func() {
		// Given
		body := bytes.NewBufferString(`{"department_id":1,"payment_method":"cash"}`)

		// When
		rec := serve(http.MethodPost, "/transactions", body, "application/json")

		// Then
		Expect(rec.Code).To(Equal(http.StatusCreated))
		var view transaction.TransactionView
		Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(Succeed())
		Expect(view.PaymentStatus).To(Equal(transaction.StatusPending))
		Expect(view.DepartmentCost).To(Equal(int64(750000)))
		Expect(view.User.ID).To(Equal(student.ID))
		Expect(view.StatusColor).To(Equal("warning"))
	})

	It("should answer 401 without a principal", func() {
		principal = nil

		rec := serve(http.MethodGet, "/transactions", nil, "")

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should reject success as a list filter", func() {
		principal = admin

		rec := serve(http.MethodGet, "/transactions?payment_status=success", nil, "")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring(string(internal.ErrCodeInvalidPaymentStatus)))
	})

	It("should reject a malformed user_id filter", func() {
		principal = admin

		rec := serve(http.MethodGet, "/transactions?user_id=abc", nil, "")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should approve once and then answer 409 INVALID_TRANSITION", func() {
		view := seed()
		principal = admin

		rec := serve(http.MethodPost, "/transactions/"+itoa(view.ID)+"/approve", nil, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp transaction.TransitionResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Transaction.PaymentStatus).To(Equal(transaction.StatusComplete))
		Expect(resp.Notification).To(ContainSubstring(view.Code))

		rec = serve(http.MethodPost, "/transactions/"+itoa(view.ID)+"/approve", nil, "")
		Expect(rec.Code).To(Equal(http.StatusConflict))
		var body errorBody
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(string(internal.ErrCodeInvalidTransition)))
	})

	It("should forbid a student from marking a transaction failed", func() {
		view := seed()

		rec := serve(http.MethodPost, "/transactions/"+itoa(view.ID)+"/mark-failed", nil, "")

		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(mockRepo.status(view.ID)).To(Equal(transaction.StatusPending))
	})

	It("should answer 404 for an unknown transaction", func() {
		principal = admin

		rec := serve(http.MethodPost, "/transactions/999/mark-pending", nil, "")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should submit a multipart proof and replace it on resubmission", func() {
		view := seed()

		body, ct := proofForm(transaction.MethodTransfer, proofPNG())
		rec := serve(http.MethodPost, "/transactions/"+itoa(view.ID)+"/payment", body, ct)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var first transaction.PaymentSubmittedResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &first)).To(Succeed())
		Expect(first.Transaction.PaymentProof).To(HavePrefix(storage.ProofDir(view.ID) + "/"))
		Expect(first.Transaction.PaymentProof).To(HaveSuffix(".png"))
		Expect(first.Message).To(ContainSubstring("Payment submitted"))

		body, ct = proofForm(transaction.MethodCash, proofPNG())
		rec = serve(http.MethodPost, "/transactions/"+itoa(view.ID)+"/payment", body, ct)
		Expect(rec.Code).To(Equal(http.StatusOK))

		Expect(files.Deleted).To(Equal([]string{first.Transaction.PaymentProof}))
		Expect(files.Count()).To(Equal(1))
	})

	It("should accept a JSON submission naming a stored proof", func() {
		view := seed()
		ref := storage.ProofDir(view.ID) + "/uploaded.jpg"
		files.Put(ref)

		body := bytes.NewBufferString(`{"payment_method":"digital_wallet","payment_proof":"` + ref + `"}`)
		rec := serve(http.MethodPost, "/transactions/"+itoa(view.ID)+"/payment", body, "application/json")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("/storage/" + ref))
	})

	It("should refuse a JSON submission naming someone else's file", func() {
		view := seed()
		files.Put("user_certificates/victim.png")

		body := bytes.NewBufferString(`{"payment_method":"cash","payment_proof":"user_certificates/victim.png"}`)
		rec := serve(http.MethodPost, "/transactions/"+itoa(view.ID)+"/payment", body, "application/json")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring(string(internal.ErrCodeInvalidPaymentProof)))
		Expect(files.Has("user_certificates/victim.png")).To(BeTrue())
		Expect(mockRepo.updatePayments).To(BeZero())
	})

	It("should refuse a proof that is not an image and store nothing", func() {
		view := seed()

		body, ct := proofForm(transaction.MethodTransfer, []byte("plain text, not an image"))
		rec := serve(http.MethodPost, "/transactions/"+itoa(view.ID)+"/payment", body, ct)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(files.Count()).To(BeZero())
	})

	It("should require the proof file", func() {
		view := seed()

		body, ct := proofForm(transaction.MethodTransfer, nil)
		rec := serve(http.MethodPost, "/transactions/"+itoa(view.ID)+"/payment", body, ct)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(mockRepo.updatePayments).To(BeZero())
	})

	It("should serve the payment page with the live cost and methods", func() {
		view := seed()

		rec := serve(http.MethodGet, "/payflow/payment/"+itoa(view.ID), nil, "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		var form transaction.PaymentForm
		Expect(json.Unmarshal(rec.Body.Bytes(), &form)).To(Succeed())
		Expect(form.Transaction.DepartmentCost).To(Equal(int64(750000)))
		Expect(form.Transaction.Department.Label).To(Equal("Informatics - Semester 2"))
		Expect(form.Methods).To(HaveLen(3))
	})

	It("should accept a submission from the payment page", func() {
		view := seed()

		body, ct := proofForm(transaction.MethodCash, proofPNG())
		rec := serve(http.MethodPost, "/payflow/payment/"+itoa(view.ID), body, ct)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(strings.Contains(rec.Body.String(), `"payment_method":"cash"`)).To(BeTrue())
	})

	It("should summarise all three statuses", func() {
		rec := serve(http.MethodGet, "/transactions/summary", nil, "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp transaction.SummaryResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Statuses).To(HaveLen(3))
	})

	It("should keep another student's transaction hidden", func() {
		view := seed()
		principal = &internal.User{ID: 3, Permissions: []string{"submit_payment"}}

		rec := serve(http.MethodGet, "/transactions/"+itoa(view.ID), nil, "")

		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})
})
