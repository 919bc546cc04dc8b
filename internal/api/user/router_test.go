package user_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/api"
	"github.com/decentralizedkaggle/DKaggle/internal/api/user"
	"github.com/decentralizedkaggle/DKaggle/internal/auth"
	"github.com/decentralizedkaggle/DKaggle/internal/config"
	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/leaderboard"
	"github.com/decentralizedkaggle/DKaggle/internal/metrics"
	"github.com/decentralizedkaggle/DKaggle/internal/pubsub"
	"github.com/decentralizedkaggle/DKaggle/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newServer(t *testing.T) (*gin.Engine, *config.Config) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Auth.JWT.Secret = "test-secret"
	cfg.Storage.Database = filepath.Join(dir, "api.db")
	cfg.Storage.Assets.LocalDir = filepath.Join(dir, "assets")

	db, err := database.Init(cfg.Storage)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	uploader, err := storage.New(cfg.Storage.Assets)
	if err != nil {
		t.Fatalf("create uploader: %v", err)
	}
	store := database.NewContestStore(db)
	broker := pubsub.NewBroker(8)
	rec := metrics.New(prometheus.NewRegistry())

	svc := &api.Services{
		DB:          db,
		Store:       store,
		Broker:      broker,
		Uploader:    uploader,
		Metrics:     rec,
		Leaderboard: leaderboard.NewService(store, leaderboard.WithPublisher(broker), leaderboard.WithMetrics(rec)),
	}
	return user.NewUserRouter(cfg, svc), cfg
}

func do(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func jsonRequest(method, path, token string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func tokenFor(t *testing.T, cfg *config.Config, wallet string) string {
	token, err := auth.GenerateJWT(wallet, cfg.Auth.JWT.Secret, 1)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func contestBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":   title,
		"endDate": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"winners": []map[string]interface{}{{"place": 1, "amount": 2}, {"place": 2, "amount": 1}},
	}
}

func TestUserContests(t *testing.T) {
	Convey("Given the user API", t, func() {
		r, cfg := newServer(t)
		host := tokenFor(t, cfg, "0xHost")

		Convey("Links default to an empty list", func() {
			w, env := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/links", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(string(env.Data), ShouldEqual, "[]")
		})

		Convey("Creating a contest requires a session token", func() {
			w, _ := do(r, jsonRequest(http.MethodPost, "/api/v1/contests", "", contestBody("x")))
			So(w.Code, ShouldEqual, http.StatusUnauthorized)

			w, _ = do(r, jsonRequest(http.MethodPost, "/api/v1/contests", "not-a-token", contestBody("x")))
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Invalid contests are rejected", func() {
			body := contestBody("x")
			body["endDate"] = time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
			w, env := do(r, jsonRequest(http.MethodPost, "/api/v1/contests", host, body))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(env.Message, ShouldContainSubstring, "endDate")
		})

		Convey("A host creates a contest", func() {
			w, env := do(r, jsonRequest(http.MethodPost, "/api/v1/contests", host, contestBody("Fraud Detection")))
			So(w.Code, ShouldEqual, http.StatusOK)

			var created struct {
				ID       string `json:"id"`
				HostInfo struct {
					Wallet string `json:"wallet"`
				} `json:"hostInfo"`
				Prizes struct {
					TotalPrizePool float64 `json:"totalPrizePool"`
				} `json:"prizes"`
				TimeInfo struct {
					EndingIn string `json:"endingIn"`
				} `json:"timeInfo"`
			}
			So(json.Unmarshal(env.Data, &created), ShouldBeNil)
			So(created.ID, ShouldNotBeEmpty)
			So(created.HostInfo.Wallet, ShouldEqual, "0xHost")
			So(created.Prizes.TotalPrizePool, ShouldEqual, 3)
			So(created.TimeInfo.EndingIn, ShouldStartWith, "2d ")

			Convey("It is listed among ongoing contests and can be read", func() {
				w, env := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/contests?status=ongoing&limit=5", nil))
				So(w.Code, ShouldEqual, http.StatusOK)
				var list []map[string]interface{}
				So(json.Unmarshal(env.Data, &list), ShouldBeNil)
				So(list, ShouldHaveLength, 1)

				w, env = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/contests?status=past", nil))
				So(w.Code, ShouldEqual, http.StatusOK)
				So(string(env.Data), ShouldEqual, "[]")

				w, _ = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/contests/"+created.ID, nil))
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("Wallets submit scores and are ranked", func() {
				for _, s := range []struct {
					wallet   string
					accuracy float64
				}{{"0xA", 80}, {"0xB", 90}, {"0xA", 95}, {"0xC", 90}} {
					w, _ := do(r, jsonRequest(http.MethodPost, "/api/v1/contests/"+created.ID+"/submissions",
						tokenFor(t, cfg, s.wallet), map[string]interface{}{"model_accuracy": s.accuracy}))
					So(w.Code, ShouldEqual, http.StatusOK)
				}

				w, env := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/contests/"+created.ID+"/leaderboard", nil))
				So(w.Code, ShouldEqual, http.StatusOK)
				var board struct {
					Version int64 `json:"version"`
					Count   int   `json:"count"`
					List    []struct {
						Wallet string `json:"wallet"`
						Rank   int    `json:"rank"`
					} `json:"list"`
				}
				So(json.Unmarshal(env.Data, &board), ShouldBeNil)
				So(board.Version, ShouldEqual, 4)
				So(board.Count, ShouldEqual, 3)
				So(board.List[0].Wallet, ShouldEqual, "0xA")
				So(board.List[1].Wallet, ShouldEqual, "0xB")
				So(board.List[2].Wallet, ShouldEqual, "0xC")
				So(board.List[2].Rank, ShouldEqual, 3)

				_, env = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/contests/"+created.ID+"/leaderboard?limit=1", nil))
				So(json.Unmarshal(env.Data, &board), ShouldBeNil)
				So(board.List, ShouldHaveLength, 1)
				So(board.Count, ShouldEqual, 3)

				w, _ = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/contests/"+created.ID+"/standing/0xC", nil))
				So(w.Code, ShouldEqual, http.StatusOK)
				w, _ = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/contests/"+created.ID+"/standing/0xZ", nil))
				So(w.Code, ShouldEqual, http.StatusNotFound)

				w, env = do(r, jsonRequest(http.MethodGet, "/api/v1/submissions", tokenFor(t, cfg, "0xA"), nil))
				So(w.Code, ShouldEqual, http.StatusOK)
				var subs []map[string]interface{}
				So(json.Unmarshal(env.Data, &subs), ShouldBeNil)
				So(subs, ShouldHaveLength, 2)
			})

			Convey("Malformed submissions are rejected", func() {
				w, _ := do(r, jsonRequest(http.MethodPost, "/api/v1/contests/"+created.ID+"/submissions", host, map[string]interface{}{}))
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("Unknown contests are not found", func() {
			w, env := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/contests/nope", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(env.Message, ShouldContainSubstring, "nope")

			w, _ = do(r, jsonRequest(http.MethodPost, "/api/v1/contests/nope/submissions", host, map[string]interface{}{"model_accuracy": 1}))
			So(w.Code, ShouldEqual, http.StatusNotFound)

			w, _ = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/contests/nope/leaderboard", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Bad listing parameters are rejected", func() {
			for _, q := range []string{"status=archived", "order=random", "limit=-1", "limit=x"} {
				w, _ := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/contests?"+q, nil))
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})
	})
}

func TestUserUploads(t *testing.T) {
	Convey("Given a multipart contest with a dataset and an image", t, func() {
		r, cfg := newServer(t)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		meta, _ := json.Marshal(contestBody("Images"))
		mw.WriteField("contest", string(meta))

		dataset, _ := mw.CreateFormFile("dataset", "train.csv")
		dataset.Write([]byte("id,label\n1,cat\n"))

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="cover.png"`)
		h.Set("Content-Type", "image/png")
		image, _ := mw.CreatePart(h)
		image.Write([]byte("\x89PNG"))
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/contests", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, cfg, "0xHost"))

		w, env := do(r, req)
		So(w.Code, ShouldEqual, http.StatusOK)

		var created struct {
			Metadata struct {
				DatasetName string `json:"datasetName"`
				DatasetURL  string `json:"datasetUrl"`
				Image       string `json:"image"`
			} `json:"metadata"`
		}
		So(json.Unmarshal(env.Data, &created), ShouldBeNil)
		So(created.Metadata.DatasetName, ShouldEqual, "train.csv")
		So(created.Metadata.DatasetURL, ShouldStartWith, "/api/v1/assets/contests/")
		So(created.Metadata.Image, ShouldEndWith, "-cover.png")

		Convey("The uploaded files are served back", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, created.Metadata.DatasetURL, nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, "id,label\n1,cat\n")

			w = httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/assets/contests/missing.csv", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("A multipart request without the contest field is rejected", t, func() {
		r, cfg := newServer(t)
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		mw.WriteField("other", "x")
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/contests", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, cfg, "0xHost"))
		w, env := do(r, req)
		So(w.Code, ShouldEqual, http.StatusBadRequest)
		So(env.Message, ShouldEqual, fmt.Sprintf("multipart field '%s' is required", "contest"))
	})

	Convey("A multipart request over the upload limit is rejected as too large", t, func() {
		r, cfg := newServer(t)
		cfg.Storage.Assets.MaxUploadMB = 1

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		meta, _ := json.Marshal(contestBody("Too big"))
		mw.WriteField("contest", string(meta))
		dataset, _ := mw.CreateFormFile("dataset", "train.csv")
		dataset.Write(bytes.Repeat([]byte("x"), 2<<20))
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/contests", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, cfg, "0xHost"))
		w, env := do(r, req)
		So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		So(env.Message, ShouldStartWith, "invalid multipart form")
		So(env.Message, ShouldNotContainSubstring, "is required")
	})

	Convey("A malformed multipart body reports the parse error", t, func() {
		r, cfg := newServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contests", bytes.NewBufferString("--xyz\r\nContent-Disposition: form-data; name=\"contest\"\r\n\r\n{"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, cfg, "0xHost"))
		w, env := do(r, req)
		So(w.Code, ShouldEqual, http.StatusBadRequest)
		So(env.Message, ShouldStartWith, "invalid multipart form")
	})
}
