package sqlinline

const QInsertNotification = `--sql 2f702cb6-f6f6-46dc-aa20-90682bab4e74
insert into notifications(id, recipient_id, kind, report_id, message, created_at)
values ($1::uuid, $2::text, $3::text, nullif($4::text, '')::uuid, $5::text, $6::timestamptz);
`
