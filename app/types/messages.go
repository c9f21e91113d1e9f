package types

// Wire messages of the HTTP and gRPC APIs. Getters are nil-safe so services can
// depend on small request interfaces.

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type DiscountInput struct {
	ActionCode string            `json:"action_code"`
	Args       map[string]string `json:"args,omitempty"`
}

func (d *DiscountInput) GetActionCode() string {
	if d == nil {
		return ""
	}
	return d.ActionCode
}

func (d *DiscountInput) GetArgs() map[string]string {
	if d == nil {
		return nil
	}
	return d.Args
}

type PreviewSubscriptionRequest struct {
	ChannelToken         string           `json:"channel_token"`
	LanguageCode         string           `json:"language_code"`
	TaxZone              string           `json:"tax_zone"`
	StrategyCode         string           `json:"strategy_code"`
	VariantId            string           `json:"variant_id"`
	ListPrice            int64            `json:"list_price"`
	ListPriceIncludesTax bool             `json:"list_price_includes_tax"`
	ScheduleId           uint64           `json:"schedule_id"`
	StartDate            string           `json:"start_date"`
	Discounts            []*DiscountInput `json:"discounts"`
}

func (r *PreviewSubscriptionRequest) GetChannelToken() string {
	if r == nil {
		return ""
	}
	return r.ChannelToken
}

func (r *PreviewSubscriptionRequest) GetLanguageCode() string {
	if r == nil {
		return ""
	}
	return r.LanguageCode
}

func (r *PreviewSubscriptionRequest) GetTaxZone() string {
	if r == nil {
		return ""
	}
	return r.TaxZone
}

func (r *PreviewSubscriptionRequest) GetStrategyCode() string {
	if r == nil {
		return ""
	}
	return r.StrategyCode
}

func (r *PreviewSubscriptionRequest) GetVariantId() string {
	if r == nil {
		return ""
	}
	return r.VariantId
}

func (r *PreviewSubscriptionRequest) GetListPrice() int64 {
	if r == nil {
		return 0
	}
	return r.ListPrice
}

func (r *PreviewSubscriptionRequest) GetListPriceIncludesTax() bool {
	if r == nil {
		return false
	}
	return r.ListPriceIncludesTax
}

func (r *PreviewSubscriptionRequest) GetScheduleId() uint64 {
	if r == nil {
		return 0
	}
	return r.ScheduleId
}

func (r *PreviewSubscriptionRequest) GetStartDate() string {
	if r == nil {
		return ""
	}
	return r.StartDate
}

func (r *PreviewSubscriptionRequest) GetDiscounts() []*DiscountInput {
	if r == nil {
		return nil
	}
	return r.Discounts
}

type DefineOrderLineSubscriptionRequest struct {
	ChannelToken         string `json:"channel_token"`
	LanguageCode         string `json:"language_code"`
	TaxZone              string `json:"tax_zone"`
	StrategyCode         string `json:"strategy_code"`
	OrderCode            string `json:"order_code"`
	OrderLineId          string `json:"order_line_id"`
	PaymentMethodCode    string `json:"payment_method_code"`
	VariantId            string `json:"variant_id"`
	ListPrice            int64  `json:"list_price"`
	ListPriceIncludesTax bool   `json:"list_price_includes_tax"`
	ScheduleId           uint64 `json:"schedule_id"`
	Quantity             int32  `json:"quantity"`
}

func (r *DefineOrderLineSubscriptionRequest) GetChannelToken() string {
	if r == nil {
		return ""
	}
	return r.ChannelToken
}

func (r *DefineOrderLineSubscriptionRequest) GetLanguageCode() string {
	if r == nil {
		return ""
	}
	return r.LanguageCode
}

func (r *DefineOrderLineSubscriptionRequest) GetTaxZone() string {
	if r == nil {
		return ""
	}
	return r.TaxZone
}

func (r *DefineOrderLineSubscriptionRequest) GetStrategyCode() string {
	if r == nil {
		return ""
	}
	return r.StrategyCode
}

func (r *DefineOrderLineSubscriptionRequest) GetOrderCode() string {
	if r == nil {
		return ""
	}
	return r.OrderCode
}

func (r *DefineOrderLineSubscriptionRequest) GetOrderLineId() string {
	if r == nil {
		return ""
	}
	return r.OrderLineId
}

func (r *DefineOrderLineSubscriptionRequest) GetPaymentMethodCode() string {
	if r == nil {
		return ""
	}
	return r.PaymentMethodCode
}

func (r *DefineOrderLineSubscriptionRequest) GetVariantId() string {
	if r == nil {
		return ""
	}
	return r.VariantId
}

func (r *DefineOrderLineSubscriptionRequest) GetListPrice() int64 {
	if r == nil {
		return 0
	}
	return r.ListPrice
}

func (r *DefineOrderLineSubscriptionRequest) GetListPriceIncludesTax() bool {
	if r == nil {
		return false
	}
	return r.ListPriceIncludesTax
}

func (r *DefineOrderLineSubscriptionRequest) GetScheduleId() uint64 {
	if r == nil {
		return 0
	}
	return r.ScheduleId
}

func (r *DefineOrderLineSubscriptionRequest) GetQuantity() int32 {
	if r == nil {
		return 0
	}
	return r.Quantity
}

type ApplyFuturePaymentDiscountRequest struct {
	ChannelToken string            `json:"channel_token"`
	OrderCode    string            `json:"order_code"`
	OrderLineId  string            `json:"order_line_id"`
	ActionCode   string            `json:"action_code"`
	Args         map[string]string `json:"args"`
}

func (r *ApplyFuturePaymentDiscountRequest) GetChannelToken() string {
	if r == nil {
		return ""
	}
	return r.ChannelToken
}

func (r *ApplyFuturePaymentDiscountRequest) GetOrderCode() string {
	if r == nil {
		return ""
	}
	return r.OrderCode
}

func (r *ApplyFuturePaymentDiscountRequest) GetOrderLineId() string {
	if r == nil {
		return ""
	}
	return r.OrderLineId
}

func (r *ApplyFuturePaymentDiscountRequest) GetActionCode() string {
	if r == nil {
		return ""
	}
	return r.ActionCode
}

func (r *ApplyFuturePaymentDiscountRequest) GetArgs() map[string]string {
	if r == nil {
		return nil
	}
	return r.Args
}

type GetSubscriptionRequest struct {
	ChannelToken string `json:"channel_token"`
	OrderCode    string `json:"order_code"`
}

func (r *GetSubscriptionRequest) GetChannelToken() string {
	if r == nil {
		return ""
	}
	return r.ChannelToken
}

func (r *GetSubscriptionRequest) GetOrderCode() string {
	if r == nil {
		return ""
	}
	return r.OrderCode
}

type CreateScheduleRequest struct {
	Name             string `json:"name"`
	DurationInterval string `json:"duration_interval"`
	DurationCount    int32  `json:"duration_count"`
	BillingInterval  string `json:"billing_interval"`
	BillingCount     int32  `json:"billing_count"`
	StartMoment      string `json:"start_moment"`
	FixedStartDate   string `json:"fixed_start_date"`
	Downpayment      int64  `json:"downpayment"`
	PaidUpFront      bool   `json:"paid_up_front"`
	UseProration     bool   `json:"use_proration"`
	AutoRenew        bool   `json:"auto_renew"`
}

func (r *CreateScheduleRequest) GetName() string {
	if r == nil {
		return ""
	}
	return r.Name
}

func (r *CreateScheduleRequest) GetDurationInterval() string {
	if r == nil {
		return ""
	}
	return r.DurationInterval
}

func (r *CreateScheduleRequest) GetDurationCount() int32 {
	if r == nil {
		return 0
	}
	return r.DurationCount
}

func (r *CreateScheduleRequest) GetBillingInterval() string {
	if r == nil {
		return ""
	}
	return r.BillingInterval
}

func (r *CreateScheduleRequest) GetBillingCount() int32 {
	if r == nil {
		return 0
	}
	return r.BillingCount
}

func (r *CreateScheduleRequest) GetStartMoment() string {
	if r == nil {
		return ""
	}
	return r.StartMoment
}

func (r *CreateScheduleRequest) GetFixedStartDate() string {
	if r == nil {
		return ""
	}
	return r.FixedStartDate
}

func (r *CreateScheduleRequest) GetDownpayment() int64 {
	if r == nil {
		return 0
	}
	return r.Downpayment
}

func (r *CreateScheduleRequest) GetPaidUpFront() bool {
	return r != nil && r.PaidUpFront
}

func (r *CreateScheduleRequest) GetUseProration() bool {
	return r != nil && r.UseProration
}

func (r *CreateScheduleRequest) GetAutoRenew() bool {
	return r != nil && r.AutoRenew
}

type GetScheduleRequest struct {
	Id uint64 `json:"id"`
}

func (r *GetScheduleRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

type ListSchedulesRequest struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (r *ListSchedulesRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListSchedulesRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

type HandleWebhookRequest struct {
	RequestId string `json:"request_id"`
	Provider  string `json:"provider"`
	Signature string `json:"signature"`
	Payload   []byte `json:"-"`
}

func (r *HandleWebhookRequest) GetRequestId() string {
	if r == nil {
		return ""
	}
	return r.RequestId
}

func (r *HandleWebhookRequest) GetProvider() string {
	if r == nil {
		return ""
	}
	return r.Provider
}

func (r *HandleWebhookRequest) GetSignature() string {
	if r == nil {
		return ""
	}
	return r.Signature
}

func (r *HandleWebhookRequest) GetPayload() []byte {
	if r == nil {
		return nil
	}
	return r.Payload
}

type OneTimePayment struct {
	PriceIncludesTax bool  `json:"price_includes_tax"`
	AmountDueNow     int64 `json:"amount_due_now"`
}

type RecurringPayment struct {
	PriceIncludesTax bool   `json:"price_includes_tax"`
	Amount           int64  `json:"amount"`
	Interval         string `json:"interval"`
	IntervalCount    int32  `json:"interval_count"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date,omitempty"`
}

type PricingBreakdown struct {
	VariantId              string `json:"variant_id"`
	PricesIncludeTax       bool   `json:"prices_include_tax"`
	Downpayment            int64  `json:"downpayment"`
	TotalProratedAmount    int64  `json:"total_prorated_amount"`
	ProratedDays           int32  `json:"prorated_days"`
	DayRate                string `json:"day_rate"`
	ProrationResidual      int64  `json:"proration_residual"`
	RecurringPrice         int64  `json:"recurring_price"`
	OriginalRecurringPrice int64  `json:"original_recurring_price"`
	FirstRecurringAmount   int64  `json:"first_recurring_amount"`
	Interval               string `json:"interval"`
	IntervalCount          int32  `json:"interval_count"`
	AmountDueNow           int64  `json:"amount_due_now"`
	SubscriptionStartDate  string `json:"subscription_start_date"`
	SubscriptionEndDate    string `json:"subscription_end_date,omitempty"`
	AutoRenew              bool   `json:"auto_renew"`
}

type SubscriptionPricing struct {
	OneTime   *OneTimePayment   `json:"one_time,omitempty"`
	Recurring *RecurringPayment `json:"recurring,omitempty"`
	Breakdown *PricingBreakdown `json:"breakdown"`
}

type OrderLineSubscription struct {
	Id                      uint64           `json:"id"`
	ChannelToken            string           `json:"channel_token"`
	OrderCode               string           `json:"order_code"`
	OrderLineId             string           `json:"order_line_id"`
	VariantId               string           `json:"variant_id"`
	StrategyCode            string           `json:"strategy_code"`
	Quantity                int32            `json:"quantity"`
	SubscriptionIds         []string         `json:"subscription_ids"`
	CorrelationHash         string           `json:"correlation_hash"`
	PriceIncludesTax        bool             `json:"price_includes_tax"`
	AmountDueNow            int64            `json:"amount_due_now"`
	OriginalRecurringAmount int64            `json:"original_recurring_amount"`
	RecurringAmount         int64            `json:"recurring_amount"`
	FirstRecurringAmount    int64            `json:"first_recurring_amount"`
	Interval                string           `json:"interval,omitempty"`
	IntervalCount           int32            `json:"interval_count,omitempty"`
	StartDate               string           `json:"start_date,omitempty"`
	EndDate                 string           `json:"end_date,omitempty"`
	AutoRenew               bool             `json:"auto_renew"`
	Discounts               []*DiscountInput `json:"discounts"`
	CreatedAt               string           `json:"created_at"`
	UpdatedAt               string           `json:"updated_at"`
}

type Subscription struct {
	Id                     uint64 `json:"id"`
	ChannelToken           string `json:"channel_token"`
	OrderCode              string `json:"order_code"`
	PaymentMethodCode      string `json:"payment_method_code"`
	State                  string `json:"state"`
	AmountDueNow           int64  `json:"amount_due_now"`
	FirstRecurringAmount   int64  `json:"first_recurring_amount"`
	RecurringAmount        int64  `json:"recurring_amount"`
	CyclesPaid             int32  `json:"cycles_paid"`
	AutoRenew              bool   `json:"auto_renew"`
	ProviderSubscriptionId string `json:"provider_subscription_id,omitempty"`
	LastEventId            string `json:"last_event_id,omitempty"`
	LastEventCreated       string `json:"last_event_created,omitempty"`
	CreatedAt              string `json:"created_at"`
	UpdatedAt              string `json:"updated_at"`
}

type Schedule struct {
	Id               uint64 `json:"id"`
	Name             string `json:"name"`
	DurationInterval string `json:"duration_interval,omitempty"`
	DurationCount    int32  `json:"duration_count"`
	BillingInterval  string `json:"billing_interval"`
	BillingCount     int32  `json:"billing_count"`
	StartMoment      string `json:"start_moment"`
	FixedStartDate   string `json:"fixed_start_date,omitempty"`
	Downpayment      int64  `json:"downpayment"`
	PaidUpFront      bool   `json:"paid_up_front"`
	UseProration     bool   `json:"use_proration"`
	AutoRenew        bool   `json:"auto_renew"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type OrderLineSubscriptionResponse struct {
	Line         *OrderLineSubscription `json:"line"`
	Subscription *Subscription          `json:"subscription"`
}

type ApplyFuturePaymentDiscountResponse struct {
	Line                 *OrderLineSubscription `json:"line"`
	Subscription         *Subscription          `json:"subscription"`
	OrderTotalAdjustment int64                  `json:"order_total_adjustment"`
}

type SubscriptionResponse struct {
	Subscription *Subscription            `json:"subscription"`
	Lines        []*OrderLineSubscription `json:"lines"`
}

type ScheduleResponse struct {
	Schedule *Schedule `json:"schedule"`
}

type ListSchedulesResponse struct {
	Schedules []*Schedule `json:"schedules"`
}

type WebhookResponse struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	EventId string `json:"event_id,omitempty"`
}
