package sqlinline

const QLockReport = `--sql af1045b9-7901-4e64-9900-ed07378762bb
select id::text, owner_id, title, bounty_amount::text, archived_at, created_at
from reports
where id = $1::uuid
for update;
`

const QSelectReport = `--sql bc7450e2-863c-4a17-a968-edb354e8fe53
select id::text, owner_id, title, bounty_amount::text, archived_at, created_at
from reports
where id = $1::uuid;
`

const QSetBountyAmount = `--sql c6f03484-37d8-470d-b3a2-13bf94d1a752
update reports
set bounty_amount = $2::numeric, updated_at = now()
where id = $1::uuid;
`

const QSumActiveContributions = `--sql 18b3da46-7a35-4773-94e6-c9c113b31e9e
select coalesce(sum(amount), 0)::text
from contributions
where report_id = $1::uuid and is_active;
`

const QLockContribution = `--sql 38986e32-baae-47d2-bfd4-03713de955cf
select id::text, report_id::text, contributor_id, contributor_name, contributor_profile_pic, amount::text, comment,
       transaction_signature, transferred_from_id::text, transferred_to_id::text, is_active, created_at
from contributions
where id = $1::uuid
for update;
`

const QSelectContribution = `--sql b2b0a60e-eda9-4984-b2ee-83ed8e34a48e
select id::text, report_id::text, contributor_id, contributor_name, contributor_profile_pic, amount::text, comment,
       transaction_signature, transferred_from_id::text, transferred_to_id::text, is_active, created_at
from contributions
where id = $1::uuid;
`

const QListContributionsByReport = `--sql 2adb79e1-dfe5-4555-974b-9c7b667aa3ac
select id::text, report_id::text, contributor_id, contributor_name, contributor_profile_pic, amount::text, comment,
       transaction_signature, transferred_from_id::text, transferred_to_id::text, is_active, created_at
from contributions
where report_id = $1::uuid
order by created_at asc, id asc;
`

const QInsertContribution = `--sql 45901ff4-7739-4cea-a04b-672980d0f291
insert into contributions(id, report_id, contributor_id, contributor_name, contributor_profile_pic, amount, comment,
                          transaction_signature, transferred_from_id, is_active, created_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::numeric, $7::text,
        $8::text, $9::uuid, $10::boolean, $11::timestamptz);
`

const QUpdateTransferredAmount = `--sql b34d51d0-3516-4071-aa97-9d8db52804d1
update contributions
set amount = $2::numeric, transferred_to_id = $3::uuid
where id = $1::uuid;
`

const QInsertReport = `--sql da9f8ad4-9cea-49fd-9923-0af8f5cfcc4a
insert into reports(id, owner_id, title, bounty_amount, archived_at, created_at)
values ($1::uuid, $2::text, $3::text, $4::numeric, $5::timestamptz, $6::timestamptz);
`
