package keyboard

import "testing"

func TestInlineButtonsNPerRow(t *testing.T) {
	btns := []InlineBtn{
		{Text: "Users", Unique: "adm_users"},
		{Text: "Stats", Unique: "adm_stats"},
		{Text: "Price", Unique: "adm_price"},
	}
	markup := InlineButtonsNPerRow(btns, 2)
	if len(markup.InlineKeyboard) != 2 || len(markup.InlineKeyboard[0]) != 2 || len(markup.InlineKeyboard[1]) != 1 {
		t.Fatalf("unexpected layout: %+v", markup.InlineKeyboard)
	}
	if got := markup.InlineKeyboard[0][1].Unique; got != "adm_stats" {
		t.Fatalf("callback unique = %q", got)
	}
}

func TestInlineButtonsURL(t *testing.T) {
	markup := InlineButtons(
		InlineBtn{Text: "Pay", URL: "https://pay.example/inv"},
		InlineBtn{Text: "Check", Unique: "chk", Data: "42"},
	)
	if got := markup.InlineKeyboard[0][0].URL; got != "https://pay.example/inv" {
		t.Fatalf("url = %q", got)
	}
	if btn := markup.InlineKeyboard[1][0]; btn.Unique != "chk" || btn.Data != "42" {
		t.Fatalf("callback button = %+v", btn)
	}
}
