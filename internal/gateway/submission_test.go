package gateway

import (
	"errors"
	"testing"
)

// TestNewSubmission はアクション別のレコード構築と必須フィールド検証を検証する。
func TestNewSubmission(t *testing.T) {
	t.Parallel()

	t.Run("内見予約はペイロードから物件と希望日が抽出されること", func(t *testing.T) {
		t.Parallel()

		sub, err := newSubmission(ActionSiteVisit, map[string]any{
			"name":     "Jane",
			"date":     "2025-01-01",
			"property": "グランメゾン青葉台301",
			"memo":     "午前中を希望",
		})
		if err != nil {
			t.Fatalf("newSubmissionに失敗: %v", err)
		}
		if sub.ID == "" {
			t.Error("IDが採番されるべき")
		}
		if sub.Name != "Jane" {
			t.Errorf("Name = %q, want %q", sub.Name, "Jane")
		}
		if sub.VisitDate != "2025-01-01" {
			t.Errorf("VisitDate = %q, want %q", sub.VisitDate, "2025-01-01")
		}
		if sub.Property != "グランメゾン青葉台301" {
			t.Errorf("Property = %q, want %q", sub.Property, "グランメゾン青葉台301")
		}
		// 抽出対象外のフィールドもペイロードJSONには保持される
		if len(sub.Payload) == 0 {
			t.Error("Payloadが保持されるべき")
		}
	})

	t.Run("フィールドが文字列以外の場合は空文字として扱われること", func(t *testing.T) {
		t.Parallel()

		_, err := newSubmission(ActionFeedback, map[string]any{
			"name":    "Jane",
			"message": 12345,
		})
		if err == nil {
			t.Error("文字列以外のmessageはエラーになるべき")
		}
	})

	t.Run("未知のアクションはerrUnsupportedActionを返すこと", func(t *testing.T) {
		t.Parallel()

		_, err := newSubmission("unknown_action", map[string]any{"email": "a@example.com"})
		if !errors.Is(err, errUnsupportedAction) {
			t.Errorf("err = %v, want errUnsupportedAction", err)
		}
	})
}
