package application

import (
	"fmt"
	"time"

	"telegram-storefront-bot/internal/domain/ports/adapter"
)

func (b *BotFacade) mainMenuRows() [][]string {
	return [][]string{
		{b.tr.T("btn_channel_access")},
		{b.tr.T("btn_find_production")},
		{b.tr.T("btn_product_selection")},
		{b.tr.T("btn_audit")},
	}
}

func (b *BotFacade) adminMenuRows() [][]string {
	return [][]string{
		{b.tr.T("btn_admin_stats")},
		{b.tr.T("btn_admin_payments")},
		{b.tr.T("btn_admin_broadcast")},
		{b.tr.T("btn_admin_settings")},
	}
}

func (b *BotFacade) planRows() [][]adapter.InlineButton {
	rows := make([][]adapter.InlineButton, 0, len(b.cfg.Plans)+1)
	for _, p := range b.cfg.Plans {
		rows = append(rows, []adapter.InlineButton{{
			Text: b.tr.T("btn_pay_plan", p.Period, p.Amount),
			Data: cbPlanPrefix + p.Code,
		}})
	}
	rows = append(rows, []adapter.InlineButton{{Text: b.tr.T("btn_back"), Data: cbBackToMain}})
	return rows
}

func (b *BotFacade) reviewRows(userChatID int64) [][]adapter.InlineButton {
	return [][]adapter.InlineButton{{
		{Text: b.tr.T("btn_confirm"), Data: fmt.Sprintf("%s%d", cbConfirmPrefix, userChatID)},
		{Text: b.tr.T("btn_reject"), Data: fmt.Sprintf("%s%d", cbRejectPrefix, userChatID)},
	}}
}

func formatUptime(d time.Duration) string {
	total := int64(d.Seconds())
	return fmt.Sprintf("%dч %dм %dс", total/3600, (total%3600)/60, total%60)
}
